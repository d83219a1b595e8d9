// internal/common/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElasticsearchConfig_GetURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  ElasticsearchConfig
		want string
	}{
		{
			name: "url field wins over addresses",
			cfg:  ElasticsearchConfig{URL: "http://es:9200", Addresses: []string{"http://other:9200"}},
			want: "http://es:9200",
		},
		{
			name: "falls back to first address",
			cfg:  ElasticsearchConfig{Addresses: []string{"http://a:9200", "http://b:9200"}},
			want: "http://a:9200",
		},
		{
			name: "empty when nothing configured",
			cfg:  ElasticsearchConfig{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.GetURL())
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "prompt_retrieval",
		User:     "svc",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=svc password=secret dbname=prompt_retrieval sslmode=disable",
		cfg.GetDSN(),
	)
}
