package redis

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

func TestAdCountCodec(t *testing.T) {
	rq := require.New(t)

	in := domain.AdCount{Count: 7, ObservedAt: time.UnixMilli(1700000000123)}
	enc := encodeAdCount(in)

	vals := map[string]string{}
	for k, v := range enc {
		switch v := v.(type) {
		case int:
			vals[k] = strconv.Itoa(v)
		case int64:
			vals[k] = strconv.FormatInt(v, 10)
		}
	}

	out, err := decodeAdCount(vals)
	rq.NoError(err)
	rq.Equal(in.Count, out.Count)
	rq.True(in.ObservedAt.Equal(out.ObservedAt))
}

func TestAdCountCodecRejectsGarbage(t *testing.T) {
	_, err := decodeAdCount(map[string]string{fieldCount: "x", fieldObserved: "1"})
	require.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestKeyNamespacing(t *testing.T) {
	rq := require.New(t)
	rq.Equal("limitedbot:quota:42:actions", key("quota", "42", "actions"))
	rq.Equal("limitedbot:adcount:9", adCountKey(9))
}

func TestStreamPayload(t *testing.T) {
	rq := require.New(t)

	p, ok := streamPayload(map[string]any{payloadField: "abc"})
	rq.True(ok)
	rq.Equal([]byte("abc"), p)

	_, ok = streamPayload(map[string]any{"other": "abc"})
	rq.False(ok)
}
