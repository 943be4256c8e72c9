// Package biz 实现 docseek 的业务层。
//
// 摄取侧：Ingester 驱动文档状态机（uploaded → processing → processed|failed），
// 完成清洗、分块、改写、嵌入与持久化；表格文档按行隔离失败。
// 查询侧：QueryOrchestrator 完成查询改写、嵌入、并发检索、上下文组装与回答生成。
// Embedder 与 Retriever 是无状态组件，Service 聚合对外业务接口。
package biz
