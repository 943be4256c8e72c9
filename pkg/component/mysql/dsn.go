package mysql

import (
	"fmt"
	"net/url"

	mysqlopts "github.com/kart-io/docseek/pkg/options/mysql"
)

// BuildDSN creates a MySQL Data Source Name from the provided options.
// The password is escaped so characters like @ or / do not break DSN parsing.
func BuildDSN(opts *mysqlopts.Options) string {
	escapedPassword := url.QueryEscape(opts.Password)

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		opts.Username,
		escapedPassword,
		opts.Host,
		opts.Port,
		opts.Database,
	)
}
