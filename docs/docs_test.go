package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestSwaggerDoc(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var spec struct {
		Swagger  string                    `json:"swagger"`
		BasePath string                    `json:"basePath"`
		Info     map[string]any            `json:"info"`
		Paths    map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &spec))

	assert.Equal(t, "2.0", spec.Swagger)
	assert.Equal(t, "/api/v1", spec.BasePath)
	assert.Equal(t, "Payment Bot Backend API", spec.Info["title"])

	routes := map[string]string{
		"/transfers":                    "post",
		"/transactions/counterparties":  "get",
		"/transactions/last-month":      "get",
		"/transactions/unseen":          "get",
		"/transactions/seen":            "post",
		"/accounts/{accountId}/balance": "get",
		"/cards/{cardId}/balance":       "get",
	}
	assert.Len(t, spec.Paths, len(routes))
	for path, method := range routes {
		require.Contains(t, spec.Paths, path)
		assert.Contains(t, spec.Paths[path], method, path)
	}
}
