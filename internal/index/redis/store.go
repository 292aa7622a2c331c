package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/index"
)

const subcategorySep = "\x1f"

// Upsert writes entries as hashes in a single DoMulti round-trip. HSET fully
// overwrites matching view IDs, which is what makes re-indexing idempotent.
func (s *Store) Upsert(ctx context.Context, entries []index.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry ID is required", domain.ErrIndexWrite)
		}
		if len(e.Vector) != s.dim {
			return fmt.Errorf("%w: entry %s: vector dimension %d, want %d",
				domain.ErrIndexWrite, e.ID, len(e.Vector), s.dim)
		}
		cmd := s.client.B().Hset().Key(s.key(e.ID)).FieldValue()
		for k, v := range entryFields(e) {
			cmd = cmd.FieldValue(k, v)
		}
		cmds[i] = cmd.Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return fmt.Errorf("%w: hset %s: %v", domain.ErrIndexWrite, entries[i].ID, err)
		}
	}
	return nil
}

// Query runs a filtered KNN search via FT.SEARCH.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filters []index.Condition) ([]index.Match, error) {
	if len(vector) != s.dim {
		return nil, fmt.Errorf("%w: query vector dimension %d, want %d", domain.ErrIndexQuery, len(vector), s.dim)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", domain.ErrIndexQuery)
	}

	filterStr := buildFilter(filters)
	knnPart := fmt.Sprintf("[KNN %d @vector $BLOB AS __score]", topK)

	queryStr := "*=>" + knnPart
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	}

	args := []string{
		s.indexName(), queryStr,
		"SORTBY", "__score",
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"LIMIT", "0", strconv.Itoa(topK),
		"DIALECT", "2",
	}

	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexQuery, err)
	}

	return s.parseMatches(raw)
}

// Describe returns the indexed vector count via a LIMIT 0 0 count query.
func (s *Store) Describe(ctx context.Context) (index.Stats, error) {
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(s.indexName(), "*", "LIMIT", "0", "0").Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		return index.Stats{}, fmt.Errorf("%w: %v", domain.ErrIndexQuery, err)
	}
	if len(raw) == 0 {
		return index.Stats{}, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return index.Stats{}, fmt.Errorf("%w: parse count: %v", domain.ErrIndexQuery, err)
	}
	return index.Stats{TotalVectorCount: int(total)}, nil
}

// Clear drops the index together with its documents and recreates the schema.
func (s *Store) Clear(ctx context.Context) error {
	cmd := s.client.B().Arbitrary("FT.DROPINDEX").Args(s.indexName(), "DD").Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "unknown index name") {
		return fmt.Errorf("%w: drop index: %v", domain.ErrIndexWrite, err)
	}
	return s.EnsureSchema(ctx)
}

// --- Hash serialization ---

func entryFields(e index.Entry) map[string]string {
	m := e.Meta
	fields := map[string]string{
		"product_id":   m.ProductID,
		"view_tag":     m.ViewTag,
		"title":        m.Title,
		"category":     m.Category,
		"store":        m.Store,
		"price":        strconv.FormatFloat(m.Price, 'f', -1, 64),
		"price_bucket": strconv.Itoa(m.PriceBucket),
		"rating":       strconv.FormatFloat(m.Rating, 'f', -1, 64),
		"rating_count": strconv.Itoa(m.RatingCount),
		"image_url":    m.ImageURL,
		"vector":       vectorToBytes(e.Vector),
	}
	if len(m.Subcategories) > 0 {
		fields["subcategories"] = strings.Join(m.Subcategories, subcategorySep)
	}
	return fields
}

func metadataFromFields(fields map[string]string) index.Metadata {
	m := index.Metadata{
		ProductID: fields["product_id"],
		ViewTag:   fields["view_tag"],
		Title:     fields["title"],
		Category:  fields["category"],
		Store:     fields["store"],
		ImageURL:  fields["image_url"],
	}
	if v := fields["subcategories"]; v != "" {
		m.Subcategories = strings.Split(v, subcategorySep)
	}
	m.Price, _ = strconv.ParseFloat(fields["price"], 64)
	m.Rating, _ = strconv.ParseFloat(fields["rating"], 64)
	m.PriceBucket, _ = strconv.Atoi(fields["price_bucket"])
	m.RatingCount, _ = strconv.Atoi(fields["rating_count"])
	return m
}

// --- Result parsing ---

// parseMatches decodes the RESP2 FT.SEARCH reply:
// [total, key1, fields1, key2, fields2, ...].
func (s *Store) parseMatches(raw []rueidis.RedisMessage) ([]index.Match, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("%w: parse total: %v", domain.ErrIndexQuery, err)
	}
	if total == 0 {
		return nil, nil
	}

	matches := make([]index.Match, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fieldArr, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldArr)

		match := index.Match{
			ID:   strings.TrimPrefix(key, s.keyPrefix()),
			Meta: metadataFromFields(fields),
		}
		if scoreStr, ok := fields["__score"]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				match.Score = math.Max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func parseFieldPairs(arr []rueidis.RedisMessage) map[string]string {
	fields := make(map[string]string, len(arr)/2)
	for i := 0; i+1 < len(arr); i += 2 {
		k, err := arr[i].ToString()
		if err != nil {
			continue
		}
		v, err := arr[i+1].ToString()
		if err != nil {
			continue
		}
		fields[k] = v
	}
	return fields
}

// --- Filter compilation ---

// buildFilter compiles the condition conjunction into RediSearch query syntax.
// Opposing gte/lte bounds on the same field merge into one two-sided range.
func buildFilter(conds []index.Condition) string {
	if len(conds) == 0 {
		return ""
	}

	type bounds struct {
		gte, lte *float64
	}
	ranges := make(map[string]*bounds)
	fieldOrder := []string{}
	var parts []string

	flushRange := func(field string) {
		b := ranges[field]
		minBound, maxBound := "-inf", "+inf"
		if b.gte != nil {
			minBound = formatNum(*b.gte)
		}
		if b.lte != nil {
			maxBound = formatNum(*b.lte)
		}
		parts = append(parts, fmt.Sprintf("@%s:[%s %s]", field, minBound, maxBound))
	}

	for _, c := range conds {
		switch c.Op {
		case index.OpEq:
			if c.IsText {
				parts = append(parts, fmt.Sprintf("@%s:{%s}", c.Field, tagEscaper.Replace(c.Str)))
			} else {
				v := formatNum(c.Num)
				parts = append(parts, fmt.Sprintf("@%s:[%s %s]", c.Field, v, v))
			}
		case index.OpGte:
			if _, ok := ranges[c.Field]; !ok {
				ranges[c.Field] = &bounds{}
				fieldOrder = append(fieldOrder, c.Field)
			}
			v := c.Num
			ranges[c.Field].gte = &v
		case index.OpLte:
			if _, ok := ranges[c.Field]; !ok {
				ranges[c.Field] = &bounds{}
				fieldOrder = append(fieldOrder, c.Field)
			}
			v := c.Num
			ranges[c.Field].lte = &v
		case index.OpIn:
			alts := make([]string, len(c.Set))
			for i, v := range c.Set {
				alts[i] = fmt.Sprintf("@%s:[%d %d]", c.Field, v, v)
			}
			parts = append(parts, "("+strings.Join(alts, " | ")+")")
		}
	}

	for _, field := range fieldOrder {
		flushRange(field)
	}

	return strings.Join(parts, " ")
}

func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "\"", "\\\"", "'", "\\'",
	":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)",
	"-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~",
	" ", "\\ ", "|", "\\|", "/", "\\/",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
