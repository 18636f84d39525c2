// Package deploy deploys KRAUSE and Delegation contracts to the blockchain.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/krause-dao/krause-contract/contracts"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

// ErrZeroAddress is returned when the toolkit reports successful deployment
// without the contract address.
var ErrZeroAddress = errors.New("zero contract address")

// Contract is a handle of the smart contract deployed to the blockchain.
type Contract struct {
	// Name of the contract from its manifest.
	Name string

	// On-chain address of the contract.
	Address util.Uint160

	// Hash of the deploying transaction. Zero if the toolkit does not expose it.
	Transaction util.Uint256

	// GAS spent on the deploying transaction execution.
	GasConsumed int64
}

// Factory deploys one particular smart contract.
type Factory interface {
	// Deploy sends transaction deploying the contract with given constructor
	// arguments and waits until the network accepts it. Deploy blocks until the
	// transaction is confirmed, rejected or ctx is done.
	Deploy(ctx context.Context, args ...any) (Contract, error)
}

// Toolkit groups services of the blockchain development toolkit required for
// the deployment.
type Toolkit interface {
	// ContractFactory returns Factory of the contract with the given name.
	ContractFactory(name string) (Factory, error)
}

// Prm groups all parameters of the deployment procedure.
type Prm struct {
	// Writes progress into the log. Optional: no logs are written if nil.
	Logger *zap.Logger

	// Toolkit to deploy contracts with.
	Toolkit Toolkit

	// Receives one human-readable line per deployed contract. Defaults to
	// os.Stdout.
	Stdout io.Writer
}

// Result groups handles of the deployed contracts.
type Result struct {
	KRAUSE     Contract
	Delegation Contract
}

// Deploy deploys KRAUSE contract and then Delegation contract which gets
// KRAUSE address as its only constructor argument.
//
// Deploy aborts on the first error, already deployed contracts stay on the
// chain. Result holds the handles of the contracts deployed before the error.
// Deploy has no own timeout: it waits as long as ctx and the toolkit allow.
func Deploy(ctx context.Context, prm Prm) (Result, error) {
	var (
		res    Result
		out    = prm.Stdout
		logger = prm.Logger
	)

	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("deploying KRAUSE contract...")

	krause, err := deployContract(ctx, prm.Toolkit, contracts.NameKRAUSE)
	if err != nil {
		return res, err
	}

	res.KRAUSE = krause

	logger.Info("KRAUSE contract successfully deployed",
		zap.String("address", address.Uint160ToString(krause.Address)), zap.Stringer("tx", krause.Transaction))
	fmt.Fprintln(out, "krause deployed to:", address.Uint160ToString(krause.Address))

	logger.Info("deploying Delegation contract...", zap.String("token", address.Uint160ToString(krause.Address)))

	delegation, err := deployContract(ctx, prm.Toolkit, contracts.NameDelegation, krause.Address)
	if err != nil {
		return res, err
	}

	res.Delegation = delegation

	logger.Info("Delegation contract successfully deployed",
		zap.String("address", address.Uint160ToString(delegation.Address)), zap.Stringer("tx", delegation.Transaction))
	fmt.Fprintln(out, "Votes deployed to:", address.Uint160ToString(delegation.Address))

	return res, nil
}

func deployContract(ctx context.Context, tk Toolkit, name string, args ...any) (Contract, error) {
	if err := ctx.Err(); err != nil {
		return Contract{}, fmt.Errorf("deploy %s contract: %w", name, err)
	}

	f, err := tk.ContractFactory(name)
	if err != nil {
		return Contract{}, fmt.Errorf("get %s contract factory: %w", name, err)
	}

	c, err := f.Deploy(ctx, args...)
	if err != nil {
		return Contract{}, fmt.Errorf("deploy %s contract: %w", name, err)
	}

	if c.Address.Equals(util.Uint160{}) {
		return Contract{}, fmt.Errorf("deploy %s contract: %w", name, ErrZeroAddress)
	}

	return c, nil
}
