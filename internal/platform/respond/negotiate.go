package respond

import (
	"strconv"
	"strings"
)

type format int

const (
	formatJSON format = iota
	formatCBOR
)

// selectFormat picks the problem encoding from an Accept header. JSON is the
// default; CBOR is chosen only when a CBOR media type is listed explicitly with
// a q-value higher than any explicit JSON type and not lower than a wildcard.
func selectFormat(accept string) format {
	if strings.TrimSpace(accept) == "" {
		return formatJSON
	}
	qCBOR, qJSON, qWildcard := -1.0, -1.0, -1.0
	for _, mr := range parseAccept(accept) {
		switch mr.mediaType {
		case "application/cbor", "application/problem+cbor", "application/*+cbor":
			qCBOR = max(qCBOR, mr.q)
		case "application/json", "application/problem+json", "application/*+json":
			qJSON = max(qJSON, mr.q)
		case "*/*", "application/*":
			qWildcard = max(qWildcard, mr.q)
		}
	}
	if qCBOR > 0 && qCBOR > qJSON && qCBOR >= qWildcard {
		return formatCBOR
	}
	return formatJSON
}

type mediaRange struct {
	mediaType string
	q         float64
}

// parseAccept splits an Accept header into media ranges. Entries without a
// slash are dropped; an invalid or out-of-range q makes the entry q=0.
func parseAccept(accept string) []mediaRange {
	var ranges []mediaRange
	for part := range strings.SplitSeq(accept, ",") {
		params := strings.Split(part, ";")
		mt := strings.ToLower(strings.TrimSpace(params[0]))
		if mt == "" || !strings.Contains(mt, "/") {
			continue
		}
		q := 1.0
		for _, p := range params[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(k), "q") {
				continue
			}
			parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || parsed < 0 || parsed > 1 {
				parsed = 0
			}
			q = parsed
		}
		ranges = append(ranges, mediaRange{mediaType: mt, q: q})
	}
	return ranges
}
