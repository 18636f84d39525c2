/*
Package contracts reads compiled KRAUSE contracts and provides access to them.

Compiled contracts are stored one per directory, each directory holding a
NEF file and a manifest:

	<root>/krause/contract.nef
	<root>/krause/manifest.json
	<root>/delegation/contract.nef
	<root>/delegation/manifest.json

Contracts are identified by the name from their manifest, not by the
directory name.
*/
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
)

// Manifest names of the contracts deployed by this repository.
const (
	NameKRAUSE     = "KRAUSE"
	NameDelegation = "Delegation"
)

const (
	nefName      = "contract.nef"
	manifestName = "manifest.json"
)

// Contract groups information about compiled Neo contract.
type Contract struct {
	NEF      nef.File
	Manifest manifest.Manifest
}

var (
	// ErrInvalidNEF is returned when contract.nef can't be decoded.
	ErrInvalidNEF = errors.New("invalid NEF")
	// ErrInvalidManifest is returned when manifest.json can't be decoded.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrNotFound is returned by Set.Get for unknown contract names.
	ErrNotFound = errors.New("contract not found")
)

// Set is a collection of compiled contracts indexed by manifest name.
type Set struct {
	byName map[string]Contract
}

// ReadDir reads all contracts located in subdirectories of the given OS
// directory. See Read.
func ReadDir(dir string) (*Set, error) {
	res, err := Read(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("read contracts from %s: %w", dir, err)
	}

	return res, nil
}

// Read reads all contracts located in the top-level subdirectories of fsys.
// Subdirectories without NEF file are skipped. Read fails if no contract is
// found or if two contracts share the same manifest name.
func Read(fsys fs.FS) (*Set, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("list directory: %w", err)
	}

	res := &Set{byName: make(map[string]Contract, len(entries))}

	for i := range entries {
		if !entries[i].IsDir() {
			continue
		}

		dir := entries[i].Name()

		_, err = fs.Stat(fsys, dir+"/"+nefName)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		c, err := readContractFromDir(fsys, dir)
		if err != nil {
			return nil, fmt.Errorf("read contract %s: %w", dir, err)
		}

		if _, ok := res.byName[c.Manifest.Name]; ok {
			return nil, fmt.Errorf("duplicated contract name '%s' in %s", c.Manifest.Name, dir)
		}

		res.byName[c.Manifest.Name] = c
	}

	if len(res.byName) == 0 {
		return nil, errors.New("no contracts found")
	}

	return res, nil
}

// Get returns contract with the given manifest name. Returns ErrNotFound if
// there is no such contract.
func (x *Set) Get(name string) (Contract, error) {
	c, ok := x.byName[name]
	if !ok {
		return Contract{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return c, nil
}

// Names returns sorted manifest names of all contracts in the Set.
func (x *Set) Names() []string {
	res := make([]string, 0, len(x.byName))
	for name := range x.byName {
		res = append(res, name)
	}

	sort.Strings(res)

	return res
}

func readContractFromDir(fsys fs.FS, dir string) (Contract, error) {
	var c Contract

	// fs.FS always uses "/", so filepath.Join() is not applicable.
	fNEF, err := fsys.Open(dir + "/" + nefName)
	if err != nil {
		return c, fmt.Errorf("open NEF: %w", err)
	}
	defer fNEF.Close()

	fManifest, err := fsys.Open(dir + "/" + manifestName)
	if err != nil {
		return c, fmt.Errorf("open manifest: %w", err)
	}
	defer fManifest.Close()

	bReader := io.NewBinReaderFromIO(fNEF)
	c.NEF.DecodeBinary(bReader)
	if bReader.Err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidNEF, bReader.Err)
	}

	err = json.NewDecoder(fManifest).Decode(&c.Manifest)
	if err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	return c, nil
}
