package observability

import (
	"context"
	"testing"
	"time"
)

type countingPipeline struct {
	NoopPipelineHooks
	analyses int
}

func (c *countingPipeline) OnAnalyzeComplete(context.Context, string, int, time.Duration, error) {
	c.analyses++
}

type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

func TestDefaultsAreNoop(t *testing.T) {
	Reset()
	ctx := context.Background()

	Pipeline().OnLoadComplete(ctx, "the_letter.json", 10, time.Second, nil)
	Pipeline().OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)
	Cache().OnCacheSet(ctx, "artifact", 1024)
	HTTP().OnError(ctx, "POST", "/api/validate", "INVALID_STORY")

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T", Pipeline())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T", HTTP())
	}
}

func TestInstalledHooksReceiveEvents(t *testing.T) {
	t.Cleanup(Reset)

	p := &countingPipeline{}
	SetPipelineHooks(p)
	SetCacheHooks(&testCacheHooks{})
	SetHTTPHooks(&testHTTPHooks{})

	Pipeline().OnAnalyzeComplete(context.Background(), "cycles", 1, time.Millisecond, nil)
	Pipeline().OnAnalyzeComplete(context.Background(), "paths", 0, time.Millisecond, nil)
	if p.analyses != 2 {
		t.Errorf("analyses = %d, want 2", p.analyses)
	}
	if _, ok := Cache().(*testCacheHooks); !ok {
		t.Errorf("Cache() = %T", Cache())
	}
	if _, ok := HTTP().(*testHTTPHooks); !ok {
		t.Errorf("HTTP() = %T", HTTP())
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset did not restore the no-op pipeline hooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	t.Cleanup(Reset)

	p := &countingPipeline{}
	SetPipelineHooks(p)
	SetPipelineHooks(nil)
	SetCacheHooks(nil)
	SetHTTPHooks(nil)

	if Pipeline() != p {
		t.Error("SetPipelineHooks(nil) replaced installed hooks")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("SetCacheHooks(nil) replaced defaults")
	}
}
