package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const exchanges = `{"method":"GET","url":"/v1/accounts/acc_1/invoices/1001","status":200,"response":{"body":{"id":1001,"total":9.5}}}
{"method":"GET","url":"/v1/accounts/acc_2/invoices/1002?paid=true","status":200,"response":{"body":{"id":1002,"total":3}}}
{"method":"POST","url":"/v1/accounts/acc_1/invoices","status":201,"request":{"content_type":"application/json","body":{"lines":[{"sku":"a","qty":1}]}},"response":{"body":{"id":1003}}}
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FILE", "")
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "usage:")

	code, _, stderr = runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, stdout, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "apirecord build")

	code, _, stderr = runCLI(t, "build")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "at least one capture file")
}

func TestBuild_YAMLWithRouteTable(t *testing.T) {
	captures := writeTemp(t, "traffic.jsonl", exchanges)
	routes := writeTemp(t, "routes.yaml", `routes:
  - template: /v1/accounts/{account}/invoices/{invoice}
    tag: Billing
  - template: /v1/accounts/{account}/invoices
    methods: [POST]
    tag: Billing
`)

	code, stdout, stderr := runCLI(t, "build", "-routes", routes, "-title", "Billing API", captures)
	require.Equal(t, 0, code, stderr)

	var doc struct {
		OpenAPI string `yaml:"openapi"`
		Info    struct {
			Title string `yaml:"title"`
		} `yaml:"info"`
		Paths map[string]map[string]struct {
			Tags       []string `yaml:"tags"`
			Parameters []struct {
				In       string `yaml:"in"`
				Name     string `yaml:"name"`
				Required bool   `yaml:"required"`
			} `yaml:"parameters"`
		} `yaml:"paths"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &doc))
	assert.Equal(t, "3.0.0", doc.OpenAPI)
	assert.Equal(t, "Billing API", doc.Info.Title)

	get := doc.Paths["/v1/accounts/{account}/invoices/{invoice}"]["get"]
	assert.Equal(t, []string{"Billing"}, get.Tags)

	byName := make(map[string]bool)
	for _, p := range get.Parameters {
		byName[p.In+":"+p.Name] = p.Required
	}
	assert.Equal(t, map[string]bool{
		"path:account": true,
		"path:invoice": true,
		"query:paid":   false,
	}, byName)

	assert.Contains(t, doc.Paths["/v1/accounts/{account}/invoices"], "post")
}

func TestBuild_JSONToFile(t *testing.T) {
	captures := writeTemp(t, "traffic.jsonl", exchanges)
	out := filepath.Join(t.TempDir(), "openapi.json")

	code, stdout, stderr := runCLI(t, "build", "-format", "json", "-o", out, captures)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc["paths"], "/v1/accounts/acc_1/invoices/{id}")
	assert.Contains(t, doc["paths"], "/v1/accounts/acc_2/invoices/{id}")
}

func TestBuild_JQMapping(t *testing.T) {
	captures := writeTemp(t, "log.json", `{"calls":[{"m":"GET","u":"/status","s":200,"b":{"ok":true}}]}`)

	code, stdout, stderr := runCLI(t, "build", "-format", "json",
		"-jq", `.calls[] | {method: .m, url: .u, status: .s, response: {body: .b}}`, captures)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"/status"`)
}

func TestBuild_Failures(t *testing.T) {
	broken := writeTemp(t, "broken.jsonl", `{"method":`)
	code, _, stderr := runCLI(t, "build", broken)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "broken.jsonl")

	code, _, stderr = runCLI(t, "build", "-format", "xml", broken)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown document format")

	code, _, _ = runCLI(t, "build", "-jq", ".[", broken)
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "build", "-routes", filepath.Join(t.TempDir(), "missing.yaml"), broken)
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "build", "-nope", broken)
	assert.Equal(t, 2, code)
}
