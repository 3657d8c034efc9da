package pipeline

import (
	"fmt"
	"path"
	"strings"

	"github.com/cratedhq/crated/internal/cargo"
)

// Names of the two stages of every plan.
const (
	BuilderStageName = "builder"
	RuntimeStageName = "runtime"
)

// Runtime library packages installed for TLS-linked binaries. libssl
// satisfies the dynamic link; ca-certificates gives the trust store TLS
// clients need at run time.
var tlsRuntimePackages = []string{"ca-certificates", "libssl3"}

// Directories on the default PATH of the runtime base image. A binary
// installed into one of these can be started by bare name.
var pathDirs = map[string]bool{
	"/usr/local/sbin": true,
	"/usr/local/bin":  true,
	"/usr/sbin":       true,
	"/usr/bin":        true,
	"/sbin":           true,
	"/bin":            true,
}

// A fully-resolved two-stage build plan.
//
// Plans are pure data derived from (package, config); synthesizing a plan
// twice from identical inputs yields identical stages, steps, and paths.
type Plan struct {
	Stages   []Stage  // Builder stage followed by the runtime stage.
	Binary   string   // Path of the binary inside the output image.
	Artifact string   // Path of the compiled artifact inside the builder container.
	Command  []string // Declared startup action of the output image.
	TLS      bool     // Whether the runtime stage carries the TLS runtime library.
}

// Synthesizes the two-stage plan for a package.
//
// The builder stage compiles the crate in release mode at a deterministic
// path. The runtime stage installs the runtime library packages the binary
// needs, receives the artifact by cross-stage copy, and declares the binary
// as the image's only startup action. TLS linkage is read from the lock
// file unless the config overrides it.
func NewPlan(pkg *cargo.Package, cfg Config) *Plan {
	tls := pkg.LinksTLS()
	if cfg.Runtime.TLS != nil {
		tls = *cfg.Runtime.TLS
	}

	artifact := path.Join(cfg.Builder.Workdir, pkg.ArtifactPath())
	binary := path.Join(cfg.Runtime.InstallDir, pkg.Binary)

	command := []string{binary}
	if pathDirs[cfg.Runtime.InstallDir] {
		command = []string{pkg.Binary}
	}

	return &Plan{
		Stages: []Stage{
			builderStage(cfg, tls),
			runtimeStage(cfg, artifact, binary, tls),
		},
		Binary:   binary,
		Artifact: artifact,
		Command:  command,
		TLS:      tls,
	}
}

// Synthesizes the builder stage.
//
// The manifest and lock file are copied before the source tree, and the
// build runs with --locked so the pinned dependency set is authoritative: a
// lock file out of step with the manifest fails the build rather than being
// silently regenerated.
func builderStage(cfg Config, tls bool) Stage {
	steps := []Step{
		{Workdir: cfg.Builder.Workdir},
	}

	if tls {
		// Linking openssl-sys needs the TLS development headers; the
		// runtime stage installs only the runtime half.
		steps = append(steps, aptInstall("pkg-config", "libssl-dev"))
	}

	steps = append(steps,
		Step{Copy: cargo.ManifestFilename + " " + cargo.ManifestFilename},
		Step{Copy: cargo.LockFilename + " " + cargo.LockFilename},
		Step{Copy: cargo.SourceDir + " " + cargo.SourceDir},
		Step{Run: "cargo build --release --locked"},
	)

	return Stage{
		Name:      BuilderStageName,
		From:      cfg.Builder.Image,
		Transient: true,
		Steps:     steps,
	}
}

// Synthesizes the runtime stage.
//
// Only runtime shared-library packages are installed; the C runtime ships
// with the base image and the toolchain never enters this stage. The
// artifact arrives by direct cross-stage copy from the builder container.
func runtimeStage(cfg Config, artifact, binary string, tls bool) Stage {
	var steps []Step

	var packages []string
	if tls {
		packages = append(packages, tlsRuntimePackages...)
	}
	packages = append(packages, cfg.Runtime.Packages...)

	if len(packages) > 0 {
		steps = append(steps, aptInstall(packages...))
	}

	steps = append(steps, Step{
		Copy: fmt.Sprintf("%s:%s %s", BuilderStageName, artifact, binary),
	})

	return Stage{
		Name:  RuntimeStageName,
		From:  cfg.Runtime.Image,
		Steps: steps,
	}
}

// Builds a non-interactive apt install step for the given packages.
func aptInstall(packages ...string) Step {
	return Step{
		Run: "apt-get update && apt-get install -y --no-install-recommends " +
			strings.Join(packages, " ") +
			" && rm -rf /var/lib/apt/lists/*",
		Env: map[string]string{"DEBIAN_FRONTEND": "noninteractive"},
	}
}
