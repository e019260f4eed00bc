// Package appconfig holds the CLI's opinionated default exclusion lists,
// adapted from the teacher's own internal/appconfig package. Every list
// here is expressed the way this module's FilterEngine actually consumes
// exclusions: as glob patterns matched against a basename, not as the
// teacher's separate per-category fields.
package appconfig

import "strings"

// Default lists are best-effort and can be expanded.

// DefaultExcludedDirs are directory basenames commonly excluded from a
// source tree listing: VCS metadata, IDE state, build output, and
// per-language dependency caches.
func DefaultExcludedDirs() []string {
	return []string{
		// Version control
		".git", ".hg", ".svn",
		// IDE/Editor specific
		".idea", ".vscode", ".vs", ".project", ".settings", ".classpath", ".metals", ".bsp", ".bloop",
		// Build artifacts & Dependencies (Common)
		"node_modules", "vendor", "target", "build", "dist", "out", "bin", "obj",
		// Python
		"__pycache__", ".pytest_cache", ".mypy_cache", ".tox", ".venv", "venv", "ENV", "env",
		// JS frameworks build
		".next", ".nuxt", ".svelte-kit", ".output",
		// Serverless frameworks
		".wrangler", ".serverless",
		// Terraform
		".terraform",
		// Caching
		".cache",
		// Jupyter
		".ipynb_checkpoints",
		// Elixir / Erlang
		"_build", "deps", "_rel", "ebin",
	}
}

// DefaultMediaExtensions lists binary media formats rarely of interest in
// a source tree listing.
func DefaultMediaExtensions() []string {
	return []string{
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp", ".svg", ".ico",
		".mp3", ".wav", ".ogg", ".aac", ".flac", ".m4a",
		".mp4", ".avi", ".mov", ".wmv", ".mkv", ".flv", ".webm",
		".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx",
		".odt", ".ods", ".odp",
		".ttf", ".otf", ".woff", ".woff2", ".eot",
		".psd", ".ai", ".eps", ".sketch", ".fig",
	}
}

// DefaultArchiveExtensions lists packaged/compressed formats.
func DefaultArchiveExtensions() []string {
	return []string{
		".zip", ".tar", ".gz", ".bz2", ".xz", ".rar", ".7z",
		".jar", ".war", ".ear", ".apk", ".img", ".iso", ".dmg", ".pkg",
		".deb", ".rpm", ".AppImage",
	}
}

// DefaultExecutableExtensions lists executable, script-launcher, and
// compiled-object extensions; matching is by extension only.
func DefaultExecutableExtensions() []string {
	return []string{
		".exe", ".com", ".bat", ".cmd", ".ps1", ".vbs", ".msi",
		".pyc", ".pyo", ".class", ".dll", ".so", ".dylib", ".o", ".obj", ".lib", ".a",
		".elf",
	}
}

// DefaultLockfilePatterns are exact names or glob patterns for dependency
// lockfiles, already shaped as FilterEngine exclude patterns.
func DefaultLockfilePatterns() []string {
	return []string{
		"go.sum", "package-lock.json", "yarn.lock", "composer.lock", "Gemfile.lock",
		"Pipfile.lock", "poetry.lock", "Cargo.lock", "*.gradle.lockfile", "Podfile.lock",
		"pubspec.lock", "mix.lock", "npm-shrinkwrap.json", "pnpm-lock.yaml",
		"requirements.txt", "constraints.txt",
		"terraform.lock.hcl",
	}
}

// DefaultMiscellaneousNames are exact top-level project filenames commonly
// uninteresting in a tree listing.
func DefaultMiscellaneousNames() []string {
	return []string{
		"LICENSE", "COPYING", "NOTICE", "AUTHORS", "CHANGELOG", "CONTRIBUTING", "MANIFEST",
		".DS_Store", "Thumbs.db",
	}
}

// DefaultMiscellaneousExtensions are non-code, non-media extensions:
// logs, patches, editor/VCS metadata files.
func DefaultMiscellaneousExtensions() []string {
	return []string{
		".log", ".tmp", ".bak", ".swp", ".swo", ".orig", ".rej",
		".patch", ".diff", ".sql",
	}
}

// extsToGlobs turns a list of extensions ("json", ".json") into the
// basename globs the FilterEngine expects ("*.json").
func extsToGlobs(exts []string) []string {
	globs := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(e, "."))
		globs = append(globs, "*."+e)
	}
	return globs
}

// NoiseExcludeGlobs assembles every default category above into one flat
// list of FilterEngine exclude patterns: the preset behind the CLI's
// --skip-common-noise flag. Directory names are included unchanged since
// the FilterEngine's Exclude step matches basenames for both files and
// directories (spec.md §4.D).
func NoiseExcludeGlobs() []string {
	var globs []string
	globs = append(globs, DefaultExcludedDirs()...)
	globs = append(globs, extsToGlobs(DefaultMediaExtensions())...)
	globs = append(globs, extsToGlobs(DefaultArchiveExtensions())...)
	globs = append(globs, extsToGlobs(DefaultExecutableExtensions())...)
	globs = append(globs, DefaultLockfilePatterns()...)
	globs = append(globs, DefaultMiscellaneousNames()...)
	globs = append(globs, extsToGlobs(DefaultMiscellaneousExtensions())...)
	return globs
}
