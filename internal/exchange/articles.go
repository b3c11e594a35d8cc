package exchange

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/bruch/internal/apperr"
	"github.com/roach88/bruch/internal/models"
)

// Format names an article file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Default export file names.
const (
	ArticlesJSONFile = "artikel_export.json"
	ArticlesCSVFile  = "artikel_export.csv"
	SalesJSONFile    = "verkaeufe_export.json"
	SalesCSVFile     = "verkaeufe_export.csv"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", apperr.Validation("detect format", "unsupported file type %q (want .json or .csv)", filepath.Ext(path))
	}
}

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", apperr.Validation("parse format", "unknown format %q (want json or csv)", s)
	}
}

// ParseArticles reads articles from r in the given format.
func ParseArticles(r io.Reader, format Format) ([]models.Article, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(r)
	case FormatCSV:
		return ParseCSV(r)
	default:
		return nil, apperr.Validation("parse articles", "unknown format %q", format)
	}
}

// Key aliases, first match wins.
var (
	jsonEAN           = []string{"ean", "EAN"}
	jsonArticleNumber = []string{"articleNumber", "artikelnummer", "artNr"}
	jsonName          = []string{"name", "Name", "bezeichnung"}
	jsonUnit          = []string{"unit", "einheit", "Unit"}
	jsonPrice         = []string{"price", "preis", "Price"}

	csvEAN           = []string{"ean", "barcode"}
	csvArticleNumber = []string{"articlenumber", "artikelnummer", "artnr"}
	csvName          = []string{"name", "bezeichnung"}
	csvUnit          = []string{"unit", "einheit"}
	csvPrice         = []string{"price", "preis"}
)

// ParseJSON reads a JSON array of article objects, or a single object.
// Rows without EAN or name, or with an unparseable price, are dropped.
func ParseJSON(r io.Reader) ([]models.Article, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, apperr.Validation("parse json", "invalid JSON: %v", err)
	}

	var rows []any
	switch v := doc.(type) {
	case []any:
		rows = v
	case map[string]any:
		rows = []any{v}
	default:
		return nil, apperr.Validation("parse json", "expected an array of articles")
	}

	articles := []models.Article{}
	for _, row := range rows {
		obj, ok := row.(map[string]any)
		if !ok {
			continue
		}
		a, ok := buildArticle(
			jsonField(obj, jsonEAN),
			jsonField(obj, jsonArticleNumber),
			jsonField(obj, jsonName),
			jsonField(obj, jsonUnit),
			jsonField(obj, jsonPrice),
		)
		if ok {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

// jsonField returns the first non-empty alias value as text.
func jsonField(obj map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case json.Number:
			s = t.String()
		case bool:
			continue
		default:
			s = fmt.Sprint(t)
		}
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// ParseCSV reads a delimited article table with a header row.
// The separator is ';' if the header contains one, ',' otherwise.
// Rows with fewer fields than the header, without EAN or name, or with
// an unparseable price are dropped.
func ParseCSV(r io.Reader) ([]models.Article, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Validation("parse csv", "read input: %v", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	header := firstLine(data)
	if header == "" {
		return []models.Article{}, nil
	}
	sep := ','
	if strings.Contains(header, ";") {
		sep = ';'
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sep
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperr.Validation("parse csv", "%v", err)
	}
	if len(records) < 2 {
		return []models.Article{}, nil
	}

	columns := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		h = strings.ToLower(strings.Trim(strings.TrimSpace(h), `"`))
		if _, dup := columns[h]; !dup {
			columns[h] = i
		}
	}
	field := func(rec []string, keys []string) string {
		for _, k := range keys {
			if i, ok := columns[k]; ok {
				if v := strings.TrimSpace(rec[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	articles := []models.Article{}
	for _, rec := range records[1:] {
		if len(rec) < len(records[0]) {
			continue
		}
		a, ok := buildArticle(
			field(rec, csvEAN),
			field(rec, csvArticleNumber),
			field(rec, csvName),
			field(rec, csvUnit),
			field(rec, csvPrice),
		)
		if ok {
			articles = append(articles, a)
		}
	}
	return articles, nil
}

func firstLine(data []byte) string {
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

// buildArticle assembles and normalizes a parsed row.
// A missing price reads as zero.
func buildArticle(ean, articleNumber, name, unit, price string) (models.Article, bool) {
	p := decimal.Zero
	if strings.TrimSpace(price) != "" {
		parsed, err := models.ParsePrice(price)
		if err != nil {
			return models.Article{}, false
		}
		p = parsed
	}
	a := models.Article{
		EAN:           ean,
		ArticleNumber: articleNumber,
		Name:          name,
		Unit:          unit,
		Price:         p,
	}.Normalize()
	if a.Validate() != nil {
		return models.Article{}, false
	}
	return a, true
}

// WriteArticlesJSON writes articles as an indented JSON array.
func WriteArticlesJSON(w io.Writer, articles []models.Article) error {
	if articles == nil {
		articles = []models.Article{}
	}
	return writeIndented(w, articles)
}

// WriteArticlesCSV writes the semicolon article table.
// Names are always quoted; other fields are written as is.
func WriteArticlesCSV(w io.Writer, articles []models.Article) error {
	lines := make([]string, 0, len(articles)+1)
	lines = append(lines, "ean;articleNumber;name;unit;price")
	for _, a := range articles {
		lines = append(lines, strings.Join([]string{
			a.EAN,
			a.ArticleNumber,
			quote(a.Name),
			a.Unit,
			a.Price.String(),
		}, ";"))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write articles csv: %w", err)
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeIndented(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
