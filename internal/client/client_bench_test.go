package client

import (
	"context"
	"testing"
	"time"
)

// BenchmarkClient_BuildRequest benchmarks payload marshaling and request construction.
func BenchmarkClient_BuildRequest(b *testing.B) {
	client, _ := NewAstroClient("test-api-key", "https://json.freeastrologyapi.com/complete-panchang", 10*time.Second)
	ctx := context.Background()
	req := testRequest()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = client.buildRequest(ctx, req)
	}
}

// BenchmarkExplicitError benchmarks the top-level error probe on a full response.
func BenchmarkExplicitError(b *testing.B) {
	body := []byte(`{"tithi":{"name":"purnima","number":15},"nakshatra":{"name":"rohini"},"yoga":{"1":{}},"karana":{"1":{}}}`)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = explicitError(body)
	}
}
