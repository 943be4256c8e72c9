// Package options contains flags and options for initializing the docseek server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	docseek "github.com/kart-io/docseek/internal/docseek"
	appopts "github.com/kart-io/docseek/pkg/options/app"
	cacheopts "github.com/kart-io/docseek/pkg/options/cache"
	httpopts "github.com/kart-io/docseek/pkg/options/http"
	llmopts "github.com/kart-io/docseek/pkg/options/llm"
	logopts "github.com/kart-io/docseek/pkg/options/logger"
	milvusopts "github.com/kart-io/docseek/pkg/options/milvus"
	mysqlopts "github.com/kart-io/docseek/pkg/options/mysql"
	ragopts "github.com/kart-io/docseek/pkg/options/rag"
)

var _ appopts.CliOptions = (*ServerOptions)(nil)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MySQLOptions contains MySQL database configuration.
	MySQLOptions *mysqlopts.Options `json:"mysql" mapstructure:"mysql"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains retrieval pipeline configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// CacheOptions contains query cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// DevMode 开启后错误响应附带内部原因。
	DevMode bool `json:"dev-mode" mapstructure:"dev-mode"`

	// QueryTimeout is the per-query timeout.
	QueryTimeout time.Duration `json:"query-timeout" mapstructure:"query-timeout"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		MySQLOptions:     mysqlopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		RAGOptions:       ragopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		QueryTimeout:     60 * time.Second,
		ShutdownTimeout:  30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss appopts.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MySQLOptions.AddFlags(fss.FlagSet("mysql"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"), "embedding.")
	o.ChatOptions.AddFlags(fss.FlagSet("chat"), "chat.")
	o.RAGOptions.AddFlags(fss.FlagSet("rag"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))

	fs := fss.FlagSet("misc")
	fs.BoolVar(&o.DevMode, "dev-mode", o.DevMode, "Include internal error causes in responses")
	fs.DurationVar(&o.QueryTimeout, "query-timeout", o.QueryTimeout, "Per-query timeout")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.HTTPOptions.Complete(); err != nil {
		return err
	}
	if err := o.EmbeddingOptions.Complete(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}
	if err := o.ChatOptions.Complete(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	if err := o.RAGOptions.Complete(); err != nil {
		return fmt.Errorf("rag: %w", err)
	}
	if err := o.CacheOptions.Complete(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate())
	errs = append(errs, o.MySQLOptions.Validate())
	errs = append(errs, o.MilvusOptions.Validate()...)
	errs = append(errs, o.EmbeddingOptions.Validate()...)
	errs = append(errs, o.ChatOptions.Validate()...)
	errs = append(errs, o.RAGOptions.Validate()...)
	errs = append(errs, o.CacheOptions.Validate()...)

	if o.QueryTimeout <= 0 {
		errs = append(errs, fmt.Errorf("query-timeout must be positive"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a docseek.Config based on ServerOptions.
func (o *ServerOptions) Config() (*docseek.Config, error) {
	return &docseek.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		MySQLOptions:     o.MySQLOptions,
		MilvusOptions:    o.MilvusOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		RAGOptions:       o.RAGOptions,
		CacheOptions:     o.CacheOptions,
		DevMode:          o.DevMode,
		QueryTimeout:     o.QueryTimeout,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
