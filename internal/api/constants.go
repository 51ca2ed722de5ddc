package api

// 查询参数
const (
	QueryLimit = "limit"
	QuerySince = "since" // RFC3339 或 Unix 秒
)
