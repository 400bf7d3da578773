package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/apirecord/pkg/recorder"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"APIRECORD_TITLE", "APIRECORD_VERSION", "APIRECORD_FORMAT",
		"APIRECORD_SUCCESS_CODES", "APIRECORD_STRICT_EMPTY", "APIRECORD_SKIP_EMPTY_QUERY",
		"APIRECORD_FRAGMENT_CACHE", "APIRECORD_LOAD_WORKERS",
		"LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "API", cfg.Title)
	assert.Equal(t, "v1", cfg.Version)
	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, []int{200, 201}, cfg.SuccessCodes)
	assert.False(t, cfg.StrictEmpty)
	assert.False(t, cfg.SkipEmptyQuery)
	assert.Equal(t, 256, cfg.FragmentCache)
	assert.Equal(t, 4, cfg.LoadWorkers)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogCompress)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APIRECORD_TITLE", "Shop API")
	t.Setenv("APIRECORD_VERSION", "2.1")
	t.Setenv("APIRECORD_FORMAT", "json")
	t.Setenv("APIRECORD_SUCCESS_CODES", "200, 202,204")
	t.Setenv("APIRECORD_STRICT_EMPTY", "yes")
	t.Setenv("APIRECORD_SKIP_EMPTY_QUERY", "true")
	t.Setenv("APIRECORD_FRAGMENT_CACHE", "32")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_COMPRESS", "off")

	cfg := Load()
	assert.Equal(t, "Shop API", cfg.Title)
	assert.Equal(t, "2.1", cfg.Version)
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []int{200, 202, 204}, cfg.SuccessCodes)
	assert.True(t, cfg.StrictEmpty)
	assert.True(t, cfg.SkipEmptyQuery)
	assert.Equal(t, 32, cfg.FragmentCache)

	lc := cfg.Logging()
	assert.Equal(t, "debug", lc.Level)
	assert.False(t, lc.Compress)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("APIRECORD_SUCCESS_CODES", "200,ok")
	t.Setenv("APIRECORD_FRAGMENT_CACHE", "many")
	t.Setenv("APIRECORD_STRICT_EMPTY", "maybe")

	cfg := Load()
	assert.Equal(t, []int{200, 201}, cfg.SuccessCodes)
	assert.Equal(t, 256, cfg.FragmentCache)
	assert.False(t, cfg.StrictEmpty)
}

func TestSuccessCodesDefaultIsCopied(t *testing.T) {
	t.Setenv("APIRECORD_SUCCESS_CODES", "")
	cfg := Load()
	cfg.SuccessCodes[0] = 299
	assert.Equal(t, 200, recorder.DefaultSuccessCodes[0])
}

func TestRecorderOptions(t *testing.T) {
	t.Setenv("APIRECORD_TITLE", "Configured")
	t.Setenv("APIRECORD_SUCCESS_CODES", "202")

	rec := recorder.New(Load().RecorderOptions()...)
	doc := rec.Document()
	assert.Equal(t, "Configured", doc.Info.Title)

	// the request body of a 200 is not sampled any more
	_, err := rec.RecordExchange(t.Context(), recorder.Exchange{
		Method:              "POST",
		URL:                 "/jobs",
		Status:              200,
		RequestContentType:  "application/json",
		RequestBody:         []byte(`{"name":"x"}`),
		ResponseContentType: "application/json",
		ResponseBody:        []byte(`{"id":1}`),
	})
	require.NoError(t, err)
	frag, err := rec.OperationSchema("/jobs", "POST")
	require.NoError(t, err)
	assert.Nil(t, frag.RequestBody)
}
