package workspace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/utilitywarehouse/git-ws/internal/utils"
	"github.com/utilitywarehouse/git-ws/manifest"
	"github.com/utilitywarehouse/git-ws/resolver"
)

// LinkCopyFiles materializes the linkfiles/copyfiles of the main project
// and its first-level dependencies only — deeper manifests' link/copy
// declarations are ignored, per the materializer's scoping rule. projects
// must be in BFS order (Resolve's output).
func (mz *Materializer) LinkCopyFiles(projects []resolver.Project, filters ...manifest.Filter) []Diagnostic {
	if len(projects) == 0 {
		return nil
	}
	// The first project is either the main one, whose direct dependencies
	// sit one level deeper, or a direct dependency itself.
	maxLevel := projects[0].Level
	if projects[0].IsMain {
		maxLevel++
	}

	var diags []Diagnostic
	for _, p := range projects {
		if p.Level > maxLevel {
			continue
		}
		for _, ref := range p.LinkFiles {
			if err := mz.applyLinkFile(p, ref, filters); err != nil {
				diags = append(diags, Diagnostic{Path: p.Path, Err: err})
			}
		}
		for _, ref := range p.CopyFiles {
			if err := mz.applyCopyFile(p, ref, filters); err != nil {
				diags = append(diags, Diagnostic{Path: p.Path, Err: err})
			}
		}
	}
	return diags
}

func (mz *Materializer) applyLinkFile(p resolver.Project, ref manifest.FileRef, filters []manifest.Filter) error {
	selected, _ := manifest.SelectFileRef(ref, p.Path, filters)
	if !selected {
		return nil
	}

	src := utils.AbsLink(filepath.Join(mz.Root, p.Path), ref.Src)
	dest := utils.AbsLink(mz.Root, ref.Dest)

	// Skip the relink entirely if dest is already a symlink pointing at
	// src: avoids flapping the directory's mtime on every update.
	if existing, err := utils.ReadAbsLink(dest); err == nil && existing == src {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rel, err := filepath.Rel(filepath.Dir(dest), src)
	if err != nil {
		rel = src
	}

	tmp := dest + ".git-ws-tmp"
	os.Remove(tmp)
	if err := os.Symlink(rel, tmp); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

func (mz *Materializer) applyCopyFile(p resolver.Project, ref manifest.FileRef, filters []manifest.Filter) error {
	selected, _ := manifest.SelectFileRef(ref, p.Path, filters)
	if !selected {
		return nil
	}

	src := filepath.Join(mz.Root, p.Path, ref.Src)
	dest := filepath.Join(mz.Root, ref.Dest)

	srcHash, err := fileHash(src)
	if err != nil {
		return err
	}

	if destHash, err := fileHash(dest); err == nil {
		recorded, ok := mz.readCopyHash(dest)
		if ok && recorded != destHash && destHash != srcHash {
			return fmt.Errorf("%s: %w", ref.Dest, ErrCopyFileModified)
		}
	}

	in, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(dest, in, 0o644); err != nil {
		return err
	}
	return mz.writeCopyHash(dest, srcHash)
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// copy-file staleness is tracked by content hash rather than mtime: the
// workspace metadata directory already exists for other persisted state,
// and a hash survives a clean checkout where mtimes would not.
func (mz *Materializer) copyHashRecordPath(dest string) string {
	rel, err := filepath.Rel(mz.Root, dest)
	if err != nil {
		rel = filepath.Base(dest)
	}
	return filepath.Join(mz.Root, MetadataDir, "copyfile-hashes", rel+".sha256")
}

func (mz *Materializer) readCopyHash(dest string) (string, bool) {
	raw, err := os.ReadFile(mz.copyHashRecordPath(dest))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (mz *Materializer) writeCopyHash(dest, hash string) error {
	p := mz.copyHashRecordPath(dest)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte(hash), 0o644)
}
