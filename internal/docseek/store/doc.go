// Package store 提供 docseek 服务的数据存储层。
//
// 元数据（文档、图片）存储在 MySQL 中，检索向量存储在 Milvus 中。
// 两边通过文档/图片 ID 关联，删除时先清理向量再清理元数据。
package store
