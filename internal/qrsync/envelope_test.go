package qrsync

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

func catalog(n int, name string) []models.Article {
	out := make([]models.Article, n)
	for i := range out {
		out[i] = models.Article{
			EAN:   fmt.Sprintf("40%011d", i),
			Name:  fmt.Sprintf("%s %d", name, i),
			Unit:  models.DefaultUnit,
			Price: decimal.New(int64(100+i), -2),
		}
	}
	return out
}

func TestEncode_SingleEnvelope(t *testing.T) {
	envs, err := Encode(catalog(2, "Schraube"), DefaultChunkSize)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, 1, envs[0].Chunk)
	assert.Equal(t, 1, envs[0].Total)

	var got []models.Article
	require.NoError(t, json.Unmarshal([]byte(envs[0].Data), &got))
	assert.Len(t, got, 2)
}

func TestEncode_EmptyCatalog(t *testing.T) {
	envs, err := Encode(nil, DefaultChunkSize)
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "[]", envs[0].Data)
}

func TestEncode_SplitsLargePayload(t *testing.T) {
	articles := catalog(200, "Schraube")
	envs, err := Encode(articles, DefaultChunkSize)
	require.NoError(t, err)
	require.Greater(t, len(envs), 1)

	var joined strings.Builder
	for i, env := range envs {
		assert.Equal(t, i+1, env.Chunk)
		assert.Equal(t, len(envs), env.Total)
		assert.LessOrEqual(t, len(env.Data), DefaultChunkSize)
		joined.WriteString(env.Data)
	}

	full, err := json.Marshal(articles)
	require.NoError(t, err)
	assert.Equal(t, string(full), joined.String())
}

func TestEncode_NeverSplitsRunes(t *testing.T) {
	articles := catalog(50, "Größenverstellbarer Schraubenschlüssel €")
	envs, err := Encode(articles, 97)
	require.NoError(t, err)

	for _, env := range envs {
		assert.True(t, utf8.ValidString(env.Data), "chunk %d is not valid UTF-8", env.Chunk)
		assert.LessOrEqual(t, len(env.Data), 97)
	}
}

func TestEncode_RejectsTinyChunkSize(t *testing.T) {
	_, err := Encode(catalog(1, "A"), 2)
	assert.True(t, apperr.IsValidation(err))
}

func TestEncode_RejectsTooManyEnvelopes(t *testing.T) {
	_, err := Encode(catalog(200, "Schraube"), 8)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestDecodeEnvelope_AcceptsMaxChunks(t *testing.T) {
	env, err := DecodeEnvelope(fmt.Sprintf(`{"chunk":%d,"total":%d,"data":"x"}`, MaxChunks, MaxChunks))
	require.NoError(t, err)
	assert.Equal(t, MaxChunks, env.Total)
}

func TestEnvelope_Text(t *testing.T) {
	text, err := Envelope{Chunk: 2, Total: 3, Data: `[{"ean":"1"`}.Text()
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunk":2,"total":3,"data":"[{\"ean\":\"1\""}`, text)
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope(`{"chunk":2,"total":3,"data":"abc"}`)
	require.NoError(t, err)
	assert.Equal(t, Envelope{Chunk: 2, Total: 3, Data: "abc"}, env)
}

func TestDecodeEnvelope_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "4012345678901"},
		{"array", `[1,2,3]`},
		{"missing chunk", `{"total":1,"data":"x"}`},
		{"missing total", `{"chunk":1,"data":"x"}`},
		{"missing data", `{"chunk":1,"total":1}`},
		{"empty data", `{"chunk":1,"total":1,"data":""}`},
		{"zero chunk", `{"chunk":0,"total":1,"data":"x"}`},
		{"chunk beyond total", `{"chunk":3,"total":2,"data":"x"}`},
		{"zero total", `{"chunk":1,"total":0,"data":"x"}`},
		{"total too large", `{"chunk":1,"total":50000000,"data":"x"}`},
		{"total beyond int32", `{"chunk":1,"total":2147483648,"data":"x"}`},
		{"fractional chunk", `{"chunk":1.5,"total":2,"data":"x"}`},
		{"string chunk", `{"chunk":"1","total":2,"data":"x"}`},
		{"data not a string", `{"chunk":1,"total":1,"data":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedEnvelope))
			assert.True(t, apperr.IsValidation(err))
		})
	}
}
