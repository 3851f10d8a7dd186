package search

// SelectBackend 仅当启用全文索引且检索词非空时选择索引，
// 无检索词的浏览始终回落到关系库.
func SelectBackend(q Query, useFullTextIndex bool) BackendChoice {
	if useFullTextIndex && q.Term != "" {
		return FullTextIndex
	}

	return RelationalStore
}

// MaxAllowedPage 结果预算内可到达的最大页码，至少为 1.
func MaxAllowedPage(perPage, budget int) int {
	if perPage <= 0 || budget <= 0 {
		return 1
	}

	return (budget + perPage - 1) / perPage
}

// CapPage 将页码截断到 ceil(budget/perPage)，预算内的页码原样返回.
// 必须在发起索引查询之前调用.
func CapPage(page, perPage, budget int) int {
	if page < 1 {
		page = 1
	}

	return min(page, MaxAllowedPage(perPage, budget))
}

// CapTotal 索引报告的总数不超过预算.
func CapTotal(reported, budget int) int {
	if reported < 0 {
		reported = 0
	}

	if budget < 0 {
		return reported
	}

	return min(reported, budget)
}
