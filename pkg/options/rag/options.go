// Package rag provides retrieval pipeline configuration options.
package rag

import (
	"fmt"

	"github.com/kart-io/docseek/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains retrieval pipeline configuration.
type Options struct {
	// ChunkSize is the target size of text chunks in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the overlap between adjacent chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// MinChunkSize 段落累积阶段的最小切分长度。
	MinChunkSize int `json:"min-chunk-size" mapstructure:"min-chunk-size"`

	// MaxChunkSize 段落累积阶段的上限，超过则进入递归切分。
	MaxChunkSize int `json:"max-chunk-size" mapstructure:"max-chunk-size"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// EmbedBatchSize 每次嵌入调用的最大文本数。
	EmbedBatchSize int `json:"embed-batch-size" mapstructure:"embed-batch-size"`

	// ScoreFloor is the minimum cosine similarity for a retrieval hit.
	ScoreFloor float64 `json:"score-floor" mapstructure:"score-floor"`

	// ChunkLimit is the number of text chunks retrieved per query.
	ChunkLimit int `json:"chunk-limit" mapstructure:"chunk-limit"`

	// ImageLimit is the number of images retrieved per query.
	ImageLimit int `json:"image-limit" mapstructure:"image-limit"`

	// ImagePreempt 命中图片时是否跳过文本问答直接返回图片。
	ImagePreempt bool `json:"image-preempt" mapstructure:"image-preempt"`

	// ChunkCollection is the Milvus collection for text chunks.
	ChunkCollection string `json:"chunk-collection" mapstructure:"chunk-collection"`

	// ImageCollection is the Milvus collection for image units.
	ImageCollection string `json:"image-collection" mapstructure:"image-collection"`

	// UploadDir is the directory for storing uploaded files.
	UploadDir string `json:"upload-dir" mapstructure:"upload-dir"`

	// ExtractorURL 非纯文本类型的外部抽取服务地址，留空则拒绝这些类型。
	ExtractorURL string `json:"extractor-url" mapstructure:"extractor-url"`

	// EnrichEnabled 是否启用块改写与查询改写。
	EnrichEnabled bool `json:"enrich-enabled" mapstructure:"enrich-enabled"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:       1000,
		ChunkOverlap:    200,
		MinChunkSize:    500,
		MaxChunkSize:    1200,
		EmbeddingDim:    384,
		EmbedBatchSize:  4,
		ScoreFloor:      0.68,
		ChunkLimit:      10,
		ImageLimit:      2,
		ImagePreempt:    true,
		ChunkCollection: "doc_chunks",
		ImageCollection: "image_units",
		UploadDir:       "_output/uploads",
		EnrichEnabled:   true,
	}
}

// AddFlags adds flags for retrieval options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"rag.chunk-size", o.ChunkSize, "Target size of text chunks in characters.")
	fs.IntVar(&o.ChunkOverlap, options.Join(prefixes...)+"rag.chunk-overlap", o.ChunkOverlap, "Overlap between adjacent chunks.")
	fs.IntVar(&o.MinChunkSize, options.Join(prefixes...)+"rag.min-chunk-size", o.MinChunkSize, "Minimum accumulated length before a chunk is cut.")
	fs.IntVar(&o.MaxChunkSize, options.Join(prefixes...)+"rag.max-chunk-size", o.MaxChunkSize, "Ceiling above which a chunk is split recursively.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"rag.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.IntVar(&o.EmbedBatchSize, options.Join(prefixes...)+"rag.embed-batch-size", o.EmbedBatchSize, "Maximum texts per embedding call.")
	fs.Float64Var(&o.ScoreFloor, options.Join(prefixes...)+"rag.score-floor", o.ScoreFloor, "Minimum cosine similarity for a retrieval hit.")
	fs.IntVar(&o.ChunkLimit, options.Join(prefixes...)+"rag.chunk-limit", o.ChunkLimit, "Number of text chunks retrieved per query.")
	fs.IntVar(&o.ImageLimit, options.Join(prefixes...)+"rag.image-limit", o.ImageLimit, "Number of images retrieved per query.")
	fs.BoolVar(&o.ImagePreempt, options.Join(prefixes...)+"rag.image-preempt", o.ImagePreempt, "Return matched images without text answering.")
	fs.StringVar(&o.ChunkCollection, options.Join(prefixes...)+"rag.chunk-collection", o.ChunkCollection, "Milvus collection for text chunks.")
	fs.StringVar(&o.ImageCollection, options.Join(prefixes...)+"rag.image-collection", o.ImageCollection, "Milvus collection for image units.")
	fs.StringVar(&o.UploadDir, options.Join(prefixes...)+"rag.upload-dir", o.UploadDir, "Directory for storing uploaded files.")
	fs.StringVar(&o.ExtractorURL, options.Join(prefixes...)+"rag.extractor-url", o.ExtractorURL, "External extraction service URL for binary document types.")
	fs.BoolVar(&o.EnrichEnabled, options.Join(prefixes...)+"rag.enrich-enabled", o.EnrichEnabled, "Enable LLM chunk and query rewriting.")
}

// Validate validates the retrieval options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.MaxChunkSize < o.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.max-chunk-size must be >= chunk-size"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("rag.embedding-dim must be positive"))
	}
	if o.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("rag.embed-batch-size must be positive"))
	}
	if o.ScoreFloor < 0 || o.ScoreFloor > 1 {
		errs = append(errs, fmt.Errorf("rag.score-floor must be in [0, 1]"))
	}
	if o.ChunkLimit <= 0 {
		errs = append(errs, fmt.Errorf("rag.chunk-limit must be positive"))
	}
	if o.ChunkCollection == "" || o.ImageCollection == "" {
		errs = append(errs, fmt.Errorf("rag collection names cannot be empty"))
	}
	return errs
}

// Complete completes the retrieval options with defaults.
func (o *Options) Complete() error {
	if o.ImageLimit < 0 {
		o.ImageLimit = 0
	}
	return nil
}
