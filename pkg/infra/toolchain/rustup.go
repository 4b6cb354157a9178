package toolchain

import (
	"context"
	"os/exec"

	"github.com/m-mizutani/goerr/v2"
)

// RustupInstaller installs Rust toolchains via the rustup CLI. The toolchain
// name is opaque data from the workflow file ("stable", "1.77.0", ...).
type RustupInstaller struct {
	binary string
}

// NewRustupInstaller creates an installer using the rustup binary on PATH
func NewRustupInstaller() *RustupInstaller {
	return &RustupInstaller{binary: "rustup"}
}

// Install resolves and installs the requested toolchain. Already-installed
// toolchains are a fast no-op in rustup itself, so there is no caching here.
func (i *RustupInstaller) Install(ctx context.Context, toolchain string) (string, error) {
	if toolchain == "" {
		return "", goerr.New("toolchain must not be empty")
	}

	cmd := exec.CommandContext(ctx, i.binary, "toolchain", "install", toolchain)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), goerr.Wrap(err, "failed to install toolchain",
			goerr.V("toolchain", toolchain),
		)
	}
	return string(output), nil
}
