package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Report is a JSON-encoded record of the single deployment run. Report is
// written for failed runs too: the contracts deployed before the failure are
// never removed from the chain, so they are listed to be reused or cleaned up
// manually.
type Report struct {
	ID        uuid.UUID        `json:"id"`
	Network   uint32           `json:"network"`
	Sender    string           `json:"sender"`
	Started   time.Time        `json:"started"`
	Finished  time.Time        `json:"finished"`
	Contracts []ReportContract `json:"contracts"`
	Error     string           `json:"error,omitempty"`
}

// ReportContract describes deployed contract in the Report.
type ReportContract struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Hash        string `json:"hash"`
	Transaction string `json:"transaction,omitempty"`
	GasConsumed int64  `json:"gas_consumed"`
}

// NewReport starts Report of the deployment run on the given network by the
// given sender. The Report is identified by a random UUID.
func NewReport(network uint32, sender util.Uint160) Report {
	return Report{
		ID:      uuid.New(),
		Network: network,
		Sender:  address.Uint160ToString(sender),
		Started: time.Now().UTC(),
	}
}

// Finish fills Report with the deployment results. Zero handles in res are
// skipped. Err is the deployment error, if any.
func (x *Report) Finish(res Result, err error) {
	x.Finished = time.Now().UTC()

	for _, c := range []Contract{res.KRAUSE, res.Delegation} {
		if c.Address.Equals(util.Uint160{}) {
			continue
		}

		rc := ReportContract{
			Name:        c.Name,
			Address:     address.Uint160ToString(c.Address),
			Hash:        c.Address.StringLE(),
			GasConsumed: c.GasConsumed,
		}
		if !c.Transaction.Equals(util.Uint256{}) {
			rc.Transaction = c.Transaction.StringLE()
		}

		x.Contracts = append(x.Contracts, rc)
	}

	if err != nil {
		x.Error = err.Error()
	}
}

// ReportFile is a report destination reserved before the deployment starts,
// so a path conflict is detected before any transaction is sent.
type ReportFile struct {
	path string
	f    *os.File
}

// CreateReportFile creates new file for the Report at the given path. The file
// must not exist, the returned error wraps fs.ErrExist otherwise. Resulting
// ReportFile must be either written or discarded.
func CreateReportFile(path string) (*ReportFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}

	return &ReportFile{path: path, f: f}, nil
}

// Path returns location of the report file.
func (x *ReportFile) Path() string {
	return x.path
}

// Write encodes Report into the file and closes it.
func (x *ReportFile) Write(r Report) error {
	jEnc := json.NewEncoder(x.f)
	jEnc.SetIndent("", " ")

	err := jEnc.Encode(r)
	if err != nil {
		_ = x.f.Close()
		return fmt.Errorf("encode report to JSON: %w", err)
	}

	err = x.f.Close()
	if err != nil {
		return fmt.Errorf("close report file: %w", err)
	}

	return nil
}

// Discard closes and removes the report file. It is used when the run stops
// before anything is sent to the chain.
func (x *ReportFile) Discard() error {
	_ = x.f.Close()

	err := os.Remove(x.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove report file: %w", err)
	}

	return nil
}

// WriteReport writes Report into the file located at the given path. The file
// must not exist.
func WriteReport(path string, r Report) error {
	f, err := CreateReportFile(path)
	if err != nil {
		return err
	}

	return f.Write(r)
}
