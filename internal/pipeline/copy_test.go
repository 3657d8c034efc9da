package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseCopy(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		workdir string
		src     string
		dest    string
		wantErr bool
	}{
		{
			name:  "absolute dest",
			input: "Cargo.toml /build/Cargo.toml",
			src:   "Cargo.toml",
			dest:  "/build/Cargo.toml",
		},
		{
			name:    "relative dest with workdir",
			input:   "src src",
			workdir: "/build",
			src:     "src",
			dest:    "/build/src",
		},
		{
			name:    "relative dest without workdir",
			input:   "src src",
			wantErr: true,
		},
		{
			name:    "missing destination",
			input:   "Cargo.toml",
			wantErr: true,
		},
		{
			name:    "too many tokens",
			input:   "a b c",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, dest, err := parseCopy(tt.input, tt.workdir)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertParseCopy(t, src, dest, tt.src, tt.dest)
		})
	}
}

func assertParseCopy(t *testing.T, gotSrc, gotDest, wantSrc, wantDest string) {
	t.Helper()
	if gotSrc != wantSrc {
		t.Errorf("src = %q, want %q", gotSrc, wantSrc)
	}
	if gotDest != wantDest {
		t.Errorf("dest = %q, want %q", gotDest, wantDest)
	}
}

func TestStageCopyReleasesSourceOnTargetFailure(t *testing.T) {
	src := &fakeContainer{copyFromDone: make(chan struct{})}
	dst := &fakeContainer{copyToErr: errors.New("tar extract failed")}
	stages := map[string]stageContainer{"builder": src}

	err := executeStageCopy(context.Background(), dst, stages, "builder",
		"/build/target/release/dalmatian", "/usr/local/bin/dalmatian")
	if !errors.Is(err, ErrCopy) {
		t.Fatalf("err = %v, want ErrCopy", err)
	}

	// The source stream must terminate once extraction fails, not sit
	// blocked on a write to the abandoned pipe.
	select {
	case <-src.copyFromDone:
	case <-time.After(5 * time.Second):
		t.Fatal("source stream still blocked after extraction failure")
	}
}

func TestStageCopyUnknownStage(t *testing.T) {
	dst := &fakeContainer{}

	err := executeStageCopy(context.Background(), dst, map[string]stageContainer{}, "builder",
		"/build/target/release/dalmatian", "/usr/local/bin/dalmatian")
	if !errors.Is(err, ErrCopy) {
		t.Fatalf("err = %v, want ErrCopy", err)
	}
}

func TestParseStageCopy(t *testing.T) {
	tests := []struct {
		name  string
		input string
		stage string
		path  string
		ok    bool
	}{
		{
			name:  "valid stage copy",
			input: "builder:/build/target/release/dalmatian",
			stage: "builder",
			path:  "/build/target/release/dalmatian",
			ok:    true,
		},
		{
			name:  "no colon",
			input: "/usr/local/bin",
		},
		{
			name:  "colon at start",
			input: ":/some/path",
		},
		{
			name:  "colon after slash",
			input: "/foo:bar",
		},
		{
			name:  "slash in prefix",
			input: "some/stage:path",
		},
		{
			name:  "simple host path",
			input: "Cargo.toml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage, path, ok := parseStageCopy(tt.input)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if stage != tt.stage {
				t.Errorf("stage = %q, want %q", stage, tt.stage)
			}
			if path != tt.path {
				t.Errorf("path = %q, want %q", path, tt.path)
			}
		})
	}
}
