package capture

import (
	"context"
	"testing"
)

func TestSnapshotRequiresURLAndOutput(t *testing.T) {
	if err := Snapshot(context.Background(), Options{OutputPath: "/tmp/out.png"}); err == nil {
		t.Error("missing URL accepted")
	}
	if err := Snapshot(context.Background(), Options{URL: "http://127.0.0.1:1/timeline"}); err == nil {
		t.Error("missing output path accepted")
	}
}
