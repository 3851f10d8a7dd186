package search

import "errors"

var (
	// ErrNotFound 指定的用户不存在，请求整体失败.
	ErrNotFound = errors.New("search: not found")
	// ErrBackendUnavailable 目录或检索后端调用失败.
	ErrBackendUnavailable = errors.New("search: backend unavailable")
)
