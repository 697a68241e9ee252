package codegen

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/okra-platform/xtask/internal/config"
	xrunner "github.com/okra-platform/xtask/internal/runner"
)

// fakeProtoc mimics the schema compiler: one message file per input for the
// message flag, one stub file per input for the stub flag. XTASK_FAIL_ON
// makes it exit 3 when an argument contains the given text.
const fakeProtoc = `#!/bin/sh
echo "protoc $*" >> "$XTASK_LOG"
out=""
kind=""
files=""
for a in "$@"; do
  case "$a" in
    -I*) ;;
    --rust_out=*) out="${a#--rust_out=}"; kind=msg ;;
    --grpc_out=*) out="${a#--grpc_out=}"; kind=stub ;;
    --plugin=*) ;;
    *) files="$files $a" ;;
  esac
  if [ -n "$XTASK_FAIL_ON" ]; then
    case "$a" in *"$XTASK_FAIL_ON"*) exit 3 ;; esac
  fi
done
for f in $files; do
  m=$(basename "$f" .proto)
  if [ "$kind" = msg ]; then
    printf '// generated from %s\nconst _VERSION_CHECK: () = ::protobuf::VERSION_2_28_0;\npub enum HealthCheckResponse_ServingStatus { UNKNOWN, SERVING, NOT_SERVING, SERVICE_UNKNOWN }\n#[allow(rustfmt_skip)]\n// inputs:%s\n' "$f" "$files" > "$out/$m.rs"
  else
    printf 'const _VERSION_CHECK: () = ::protobuf::VERSION_2_28_0;\npub struct %sClient;\n' "$m" > "$out/${m}_grpc.rs"
  fi
done
`

const fakeCargo = `#!/bin/sh
echo "cargo $*" >> "$XTASK_LOG"
`

// fakeAlternate mimics the alternate generator
const fakeAlternate = `#!/bin/sh
echo "alternate $* PROTOC=$PROTOC" >> "$XTASK_LOG"
protos=""
out=""
for a in "$@"; do
  case "$a" in
    --protos=*) protos="${a#--protos=}" ;;
    --out-dir=*) out="${a#--out-dir=}" ;;
  esac
done
for f in $(echo "$protos" | tr ',' ' '); do
  m=$(basename "$f" .proto)
  printf '// prost %s\npub struct %sClient;\n' "$f" "$m" > "$out/$m.rs"
done
`

type workspace struct {
	root string
	log  string
	cfg  *config.Config
	gen  *Generator
}

func newWorkspace(t *testing.T, targets []config.Target) *workspace {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}

	root := t.TempDir()
	bin := t.TempDir()
	logPath := filepath.Join(bin, "calls.log")
	t.Setenv("XTASK_LOG", logPath)
	t.Setenv("XTASK_FAIL_ON", "")

	writeFile(t, filepath.Join(bin, "protoc"), fakeProtoc, 0755)
	writeFile(t, filepath.Join(bin, "cargo"), fakeCargo, 0755)
	writeFile(t, filepath.Join(root, "target", "debug", "grpc_rust_prost"), fakeAlternate, 0755)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "compiler"), 0755))

	for _, t2 := range targets {
		for _, pkg := range t2.Packages {
			name := filepath.Base(filepath.Dir(pkg))
			if filepath.Base(pkg) != "v1" {
				name = filepath.Base(pkg)
			}
			writeFile(t, filepath.Join(root, t2.IncludeRoot, pkg, name+".proto"), "syntax = \"proto3\";\n", 0644)
		}
	}

	cfg, err := config.Default(root)
	require.NoError(t, err)
	cfg.Tools.Protoc = filepath.Join(bin, "protoc")
	cfg.Tools.Cargo = filepath.Join(bin, "cargo")
	cfg.Targets = targets

	r := xrunner.New(root, zerolog.Nop())
	var out bytes.Buffer
	r.Stdout = &out
	r.Stderr = &out

	return &workspace{
		root: root,
		log:  logPath,
		cfg:  cfg,
		gen:  NewGenerator(cfg, r, zerolog.Nop()),
	}
}

func (w *workspace) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(w.log)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// snapshot returns every file under dir keyed by relative path
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func writeFile(t *testing.T, path, content string, perm os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
