package errors

// docseek 服务代码: 21 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 21 (docseek 服务)
// - BB: 类别代码
// - CCC: 序号

func init() {
	RegisterService(ServiceDocSeek, "docseek")
}

var (
	// 请求参数错误 (类别 01)
	ErrDocInvalidRequest  = NewRequestErr(ServiceDocSeek, 1, "Invalid request parameters", "请求参数无效")
	ErrDocNoFile          = NewRequestErr(ServiceDocSeek, 2, "No file uploaded", "未上传文件")
	ErrDocUnsupportedType = NewRequestErr(ServiceDocSeek, 3, "Unsupported document type", "不支持的文档类型")
	ErrTenantRequired     = NewRequestErr(ServiceDocSeek, 4, "Tenant header is required", "缺少租户标识")
	ErrEmptyQuestion      = NewRequestErr(ServiceDocSeek, 5, "Question cannot be empty", "问题不能为空")

	// 资源错误 (类别 04)
	ErrDocNotFound   = NewNotFoundErr(ServiceDocSeek, 1, "Document not found", "文档不存在")
	ErrImageNotFound = NewNotFoundErr(ServiceDocSeek, 2, "Image not found", "图片不存在")

	// 处理错误 (类别 07)
	ErrDocProcessFailed = NewInternalErr(ServiceDocSeek, 1, "Document processing failed", "文档处理失败")
	ErrDocExtractFailed = NewInternalErr(ServiceDocSeek, 2, "Text extraction failed", "文本抽取失败")
	ErrEmbeddingFailed  = NewInternalErr(ServiceDocSeek, 3, "Embedding generation failed", "向量生成失败")
	ErrQueryFailed      = NewInternalErr(ServiceDocSeek, 4, "Failed to process query", "查询处理失败")
	ErrImageAnalysis    = NewInternalErr(ServiceDocSeek, 5, "Image analysis failed", "图片分析失败")

	// 外部依赖错误 (类别 10)
	ErrVectorStore    = NewNetworkErr(ServiceDocSeek, 1, "Vector store unavailable", "向量库不可用")
	ErrLLMUnavailable = NewNetworkErr(ServiceDocSeek, 2, "Language model unavailable", "语言模型不可用")
	ErrExtractor      = NewNetworkErr(ServiceDocSeek, 3, "Extraction service unavailable", "抽取服务不可用")

	// 超时错误 (类别 11)
	ErrQueryTimeout = NewTimeoutErr(ServiceDocSeek, 1, "Query timeout", "查询超时")
)
