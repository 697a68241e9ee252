package config

// DefaultLayout matches the grpcio workspace: rust-protobuf + grpc plugin for
// the primary codec, the prost based generator for the alternate one.
func DefaultLayout() Layout {
	return Layout{
		SchemaExt:      ".proto",
		GeneratedExt:   ".rs",
		PrimaryDir:     "protobuf",
		AlternateDir:   "prost",
		MessageOutFlag: "--rust_out",
		StubOutFlag:    "--grpc_out",
		StubSuffix:     "_grpc",
		PluginName:     "protoc-gen-grpc",
		PluginPath:     "./target/debug/grpc_rust_plugin",
		PluginBuild:    []string{"build", "-p", "grpcio-compiler"},
		Reexport:       "\npub use super::%s::*;\n",
		VersionMarker:  "::protobuf::VERSION",

		AlternateBuildDir: "compiler",
		AlternateBuild: []string{
			"build",
			"--no-default-features",
			"--features",
			"prost-codec",
			"--bin",
			"grpc_rust_prost",
		},
		AlternateBinary: "target/debug/grpc_rust_prost",

		Format: []string{"fmt", "--all"},
	}
}

// DefaultTargets is the generation table
func DefaultTargets() []Target {
	return []Target{
		{IncludeRoot: "grpc-sys/grpc/src/proto", Packages: []string{"grpc/health/v1"}, OutputRoot: "health/src/proto", Namespace: ""},
		{IncludeRoot: "proto/proto", Packages: []string{"grpc/testing"}, OutputRoot: "proto/src/proto", Namespace: "testing"},
		{IncludeRoot: "proto/proto", Packages: []string{"grpc/example"}, OutputRoot: "proto/src/proto", Namespace: "example"},
		{IncludeRoot: "proto/proto", Packages: []string{"google/rpc"}, OutputRoot: "proto/src/proto", Namespace: "google/rpc"},
	}
}

// DefaultPatches renames the health service enum to the crate's naming convention
func DefaultPatches() []PatchRule {
	return []PatchRule{
		{
			File: "health/src/proto/protobuf/health.rs",
			Substitutions: []Substitution{
				{Old: "HealthCheckResponse_ServingStatus", New: "ServingStatus"},
				// Order is important.
				{Old: "NOT_SERVING", New: "NotServing"},
				{Old: "SERVICE_UNKNOWN", New: "ServiceUnknown"},
				{Old: "UNKNOWN", New: "Unknown"},
				{Old: "SERVING", New: "Serving"},
				{Old: "rustfmt_skip", New: "rustfmt::skip"},
			},
		},
	}
}
