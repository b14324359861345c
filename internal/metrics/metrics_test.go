package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRewrite(t *testing.T) {
	before := testutil.ToFloat64(RewritesTotal.WithLabelValues(OutcomeLocal))
	RecordRewrite(OutcomeLocal)
	RecordRewrite(OutcomeLocal)

	if got := testutil.ToFloat64(RewritesTotal.WithLabelValues(OutcomeLocal)); got != before+2 {
		t.Errorf("rewrites{local} = %v, want %v", got, before+2)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	before := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues(CacheMiss))
	RecordCacheLookup(CacheMiss)

	if got := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues(CacheMiss)); got != before+1 {
		t.Errorf("cache_lookups{miss} = %v, want %v", got, before+1)
	}
}

func TestRecordResolveDuration(t *testing.T) {
	before := testutil.CollectAndCount(ResolveDuration)
	RecordResolveDuration(0.002)
	if got := testutil.CollectAndCount(ResolveDuration); got != before {
		t.Errorf("histogram series = %d, want %d", got, before)
	}
}
