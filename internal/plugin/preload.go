// PPDrive - Self-Hosted Object and Asset Storage Services
// Copyright 2026 dududaa
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dududaa/ppdrive

package plugin

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dududaa/ppdrive/internal/logging"
	"github.com/dududaa/ppdrive/internal/pperr"
)

// PreloadOptions controls how missing plugin binaries are handled.
type PreloadOptions struct {
	// AutoInstall installs missing binaries without prompting.
	AutoInstall bool

	// Reload removes a present binary first, forcing reinstallation.
	Reload bool

	// InstallDir overrides the install directory resolution.
	InstallDir string

	// Prompt and Out carry the operator consent dialog. They default
	// to stdin and stdout.
	Prompt io.Reader
	Out    io.Writer
}

// PreloadWithDeps prepares a plugin and everything it depends on,
// leaves first.
func PreloadWithDeps(p Plugin, opts PreloadOptions) error {
	for _, dep := range p.Dependencies() {
		if err := PreloadWithDeps(dep, opts); err != nil {
			return err
		}
	}
	return Preload(p, opts)
}

// Preload makes sure the plugin binary is present, installing it when
// allowed. Without AutoInstall the operator is asked once on standard
// input; declining leaves the binary absent and the subsequent load
// fails.
func Preload(p Plugin, opts PreloadOptions) error {
	dir, err := InstallDir(opts.InstallDir)
	if err != nil {
		return err
	}
	path := BinaryPath(p, dir)

	if opts.Reload {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return pperr.Wrapf(pperr.KindIO, err, "remove previous %s plugin", p.PackageName())
		}
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if !opts.AutoInstall && !askConsent(p, opts) {
		return nil
	}
	return install(p, path)
}

func askConsent(p Plugin, opts PreloadOptions) bool {
	in := opts.Prompt
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "You currently don't have the %q plugin installed. Do you want to install it? (y/n)\n", p.PackageName())

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

// install builds the plugin from source in dev builds. Release builds
// would download a prebuilt binary from a release server; that fetch
// does not exist yet and reports a plugin-load error instead.
func install(p Plugin, path string) error {
	if buildMode != "dev" {
		return pperr.Newf(pperr.KindPluginLoad,
			"remote plugin installation is not implemented; place %s manually", path)
	}

	logging.Info().Str("plugin", p.PackageName()).Msg("building plugin from source")

	src := "./plugins/" + sourceDir(p)
	cmd := exec.Command("go", "build", "-buildmode=plugin", "-o", path, src)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return pperr.Wrapf(pperr.KindPluginLoad, err, "build %s plugin", p.PackageName())
	}
	return nil
}

// sourceDir maps a package name onto its directory under plugins/.
func sourceDir(p Plugin) string {
	return strings.TrimPrefix(p.PackageName(), "ppd-")
}
