package contracts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/stretchr/testify/require"
)

const (
	krauseDir     = "krause"
	delegationDir = "delegation"
)

func TestRead(t *testing.T) {
	_fs := fstest.MapFS{}

	krauseNEF, bKrauseNEF := anyValidNEF(t, 1)
	_, bKrauseManifest := anyValidManifest(t, NameKRAUSE)
	delegationNEF, bDelegationNEF := anyValidNEF(t, 2)
	_, bDelegationManifest := anyValidManifest(t, NameDelegation)

	_fs[krauseDir+"/"+nefName] = &fstest.MapFile{Data: bKrauseNEF}
	_fs[krauseDir+"/"+manifestName] = &fstest.MapFile{Data: bKrauseManifest}
	_fs[delegationDir+"/"+nefName] = &fstest.MapFile{Data: bDelegationNEF}
	_fs[delegationDir+"/"+manifestName] = &fstest.MapFile{Data: bDelegationManifest}
	// directories without NEF are skipped
	_fs["docs/README.md"] = &fstest.MapFile{Data: []byte("docs")}
	_fs["notes.txt"] = &fstest.MapFile{Data: []byte("notes")}

	set, err := Read(_fs)
	require.NoError(t, err)
	require.Equal(t, []string{NameDelegation, NameKRAUSE}, set.Names())

	c, err := set.Get(NameKRAUSE)
	require.NoError(t, err)
	require.Equal(t, NameKRAUSE, c.Manifest.Name)
	require.Equal(t, krauseNEF.Checksum, c.NEF.Checksum)
	require.Equal(t, krauseNEF.Script, c.NEF.Script)

	c, err = set.Get(NameDelegation)
	require.NoError(t, err)
	require.Equal(t, NameDelegation, c.Manifest.Name)
	require.Equal(t, delegationNEF.Checksum, c.NEF.Checksum)

	_, err = set.Get("Unknown")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReadDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, krauseDir)
	require.NoError(t, os.Mkdir(dir, 0o700))

	_, bNEF := anyValidNEF(t, 1)
	_, bManifest := anyValidManifest(t, NameKRAUSE)

	require.NoError(t, os.WriteFile(filepath.Join(dir, nefName), bNEF, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifestName), bManifest, 0o600))

	set, err := ReadDir(root)
	require.NoError(t, err)
	require.Equal(t, []string{NameKRAUSE}, set.Names())

	_, err = ReadDir(filepath.Join(root, "missing"))
	require.Error(t, err)
}

func TestReadEmpty(t *testing.T) {
	_, err := Read(fstest.MapFS{})
	require.Error(t, err)

	_, err = Read(fstest.MapFS{"docs/README.md": &fstest.MapFile{}})
	require.Error(t, err)
}

func TestReadMissingManifest(t *testing.T) {
	_, bNEF := anyValidNEF(t, 1)

	_, err := Read(fstest.MapFS{
		krauseDir + "/" + nefName: &fstest.MapFile{Data: bNEF},
	})
	require.Error(t, err)
}

func TestReadDuplicatedName(t *testing.T) {
	_, bNEF := anyValidNEF(t, 1)
	_, bManifest := anyValidManifest(t, NameKRAUSE)

	_, err := Read(fstest.MapFS{
		krauseDir + "/" + nefName:          &fstest.MapFile{Data: bNEF},
		krauseDir + "/" + manifestName:     &fstest.MapFile{Data: bManifest},
		delegationDir + "/" + nefName:      &fstest.MapFile{Data: bNEF},
		delegationDir + "/" + manifestName: &fstest.MapFile{Data: bManifest},
	})
	require.ErrorContains(t, err, "duplicated")
}

func TestReadInvalidFormat(t *testing.T) {
	var (
		_fs          = fstest.MapFS{}
		nefPath      = krauseDir + "/" + nefName
		manifestPath = krauseDir + "/" + manifestName
	)

	_, validNEF := anyValidNEF(t, 1)
	_, validManifest := anyValidManifest(t, NameKRAUSE)

	_fs[nefPath] = &fstest.MapFile{Data: validNEF}
	_fs[manifestPath] = &fstest.MapFile{Data: validManifest}

	_, err := Read(_fs)
	require.NoError(t, err)

	_fs[nefPath] = &fstest.MapFile{Data: []byte("not a NEF")}
	_fs[manifestPath] = &fstest.MapFile{Data: validManifest}

	_, err = Read(_fs)
	require.ErrorIs(t, err, ErrInvalidNEF)

	_fs[nefPath] = &fstest.MapFile{Data: validNEF}
	_fs[manifestPath] = &fstest.MapFile{Data: []byte("not a manifest")}

	_, err = Read(_fs)
	require.ErrorIs(t, err, ErrInvalidManifest)
}

func anyValidNEF(tb testing.TB, fill byte) (nef.File, []byte) {
	script := make([]byte, 32)
	for i := range script {
		script[i] = fill
	}

	_nef, err := nef.NewFile(script)
	require.NoError(tb, err)

	bNEF, err := _nef.Bytes()
	require.NoError(tb, err)

	return *_nef, bNEF
}

func anyValidManifest(tb testing.TB, name string) (manifest.Manifest, []byte) {
	_manifest := manifest.NewManifest(name)

	jManifest, err := json.Marshal(_manifest)
	require.NoError(tb, err)

	return *_manifest, jManifest
}
