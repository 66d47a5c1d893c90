package detectoradapters

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/vabforge/vab-orchestrator/internal/detector"
	"github.com/vabforge/vab-orchestrator/internal/vab"
	"github.com/vabforge/vab-orchestrator/internal/vlclient"
)

func newTestVLClient(t *testing.T) *vlclient.Client {
	t.Helper()
	c, err := vlclient.NewClient(vlclient.Config{
		APIBase: "http://vl.local/v1", Model: "qwen-vl",
		MaxRetries: 2, BackoffMS: []int{1, 1},
	})
	require.NoError(t, err)
	return c
}

func TestVLReasoningSkipsWithParseFailedOnMalformedResponse(t *testing.T) {
	c := newTestVLClient(t)
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, "http://vl.local/v1/chat/completions",
		httpmock.NewJsonResponderOrPanic(200, map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "not json"}}},
		}))

	v := VLReasoning{Client: c}
	shot := &vab.Shot{ShotID: "shot-1", FramePaths: []string{"f0.jpg"}}
	dst := &vab.ShotResult{}
	result, err := v.Detect(context.Background(), shot, detector.Config{QwenContextMaxFrames: 1}, dst)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, "parse_failed", result.Provenance.SkippedReason)
}

func TestVLReasoningSkipsWithUnreachableOnTransportFailure(t *testing.T) {
	c := newTestVLClient(t)
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder(http.MethodPost, "http://vl.local/v1/chat/completions",
		httpmock.NewStringResponder(503, "unavailable"))

	v := VLReasoning{Client: c}
	shot := &vab.Shot{ShotID: "shot-1", FramePaths: []string{"f0.jpg"}}
	dst := &vab.ShotResult{}
	result, err := v.Detect(context.Background(), shot, detector.Config{QwenContextMaxFrames: 1}, dst)
	require.NoError(t, err)
	require.True(t, result.Skipped)
	require.Equal(t, "vl_unreachable", result.Provenance.SkippedReason)
}
