// Package pipeline turns a Cargo package into a runnable container image.
//
// A plan is synthesized from the package's manifest/lock pair and a build
// config: a transient builder stage that compiles the crate in release mode
// inside a Rust toolchain container, and a runtime stage that assembles a
// minimal image around the compiled binary. Stages run strictly in order
// against the container runtime; a failing step aborts the whole build, so
// the runtime stage never sees a broken or stale artifact. The runtime stage
// is exported as an OCI archive whose sole startup action executes the
// binary with no arguments.
//
// Step state (environment variables, working directory, shell) accumulates
// across steps within a stage and resets between stages. Container
// operations are delegated to the runtime package. Multi-platform builds
// repeat the pipeline per platform, writing each result to a
// platform-specific output directory.
//
// Example usage:
//
//	pkg, err := cargo.Load(projectDir)
//	if err != nil {
//	    return err
//	}
//
//	plan := pipeline.NewPlan(pkg, pipeline.DefaultConfig())
//
//	result, err := pipeline.Run(ctx, rt, pipeline.Options{
//	    Plan:    plan,
//	    Project: projectDir,
//	    Output:  "dist",
//	})
//	if err != nil {
//	    return err
//	}
package pipeline
