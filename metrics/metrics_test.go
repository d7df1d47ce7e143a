package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordersIncrement(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(rendersTotal.WithLabelValues("list", "ok"))
	RecordRender("list", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(rendersTotal.WithLabelValues("list", "ok")))

	dropped := testutil.ToFloat64(rendersDroppedTotal.WithLabelValues("locked"))
	RecordDropped("locked")
	assert.Equal(t, dropped+1, testutil.ToFloat64(rendersDroppedTotal.WithLabelValues("locked")))

	ObserveFetch("posts", "ok", 20*time.Millisecond)
	RecordEmbedInit("ok")
	RecordContact("ok")
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordRender("post", "not_found")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "blog_renders_total")
}
