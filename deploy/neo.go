package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/krause-dao/krause-contract/contracts"
	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/actor"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/management"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/manifest"
	"github.com/nspcc-dev/neo-go/pkg/smartcontract/nef"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// ErrExecutionFault is returned when the deploying transaction is accepted by
// the network but its execution ends in non-HALT state.
var ErrExecutionFault = errors.New("transaction execution fault")

// Actor groups services of the Neo transaction sender required by
// NeoToolkit. *actor.Actor implements Actor.
type Actor interface {
	// Sender returns account paying for and signing the transactions.
	Sender() util.Uint160

	// WaitAny waits until one of the transactions is persisted in the
	// blockchain or vub block passes.
	WaitAny(ctx context.Context, vub uint32, hashes ...util.Uint256) (*state.AppExecResult, error)
}

// ContractManagement sends contract deployment transactions.
// *management.Contract implements ContractManagement.
type ContractManagement interface {
	Deploy(exe *nef.File, manif *manifest.Manifest, data any) (util.Uint256, uint32, error)
}

// NeoToolkit is a Toolkit deploying compiled contracts to the Neo blockchain
// via native ContractManagement contract.
type NeoToolkit struct {
	logger     *zap.Logger
	actor      Actor
	management ContractManagement
	contracts  *contracts.Set
}

// NewNeoToolkit returns NeoToolkit sending transactions through the given
// actor. Contracts are looked up in the given set by their manifest names.
func NewNeoToolkit(logger *zap.Logger, act *actor.Actor, set *contracts.Set) *NeoToolkit {
	return newNeoToolkit(logger, act, management.New(act), set)
}

func newNeoToolkit(logger *zap.Logger, act Actor, m ContractManagement, set *contracts.Set) *NeoToolkit {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &NeoToolkit{
		logger:     logger,
		actor:      act,
		management: m,
		contracts:  set,
	}
}

// ContractFactory implements Toolkit interface. Returns contracts.ErrNotFound
// if there is no compiled contract with the given name.
func (x *NeoToolkit) ContractFactory(name string) (Factory, error) {
	c, err := x.contracts.Get(name)
	if err != nil {
		return nil, err
	}

	return &neoFactory{
		toolkit:  x,
		contract: c,
	}, nil
}

// ContractAddress returns address the contract gets when deployed by the
// given sender. The address does not depend on constructor arguments, so it
// is known before the deployment.
func ContractAddress(sender util.Uint160, c contracts.Contract) util.Uint160 {
	return state.CreateContractHash(sender, c.NEF.Checksum, c.Manifest.Name)
}

type neoFactory struct {
	toolkit  *NeoToolkit
	contract contracts.Contract
}

// Deploy implements Factory interface.
func (x *neoFactory) Deploy(ctx context.Context, args ...any) (Contract, error) {
	var (
		name = x.contract.Manifest.Name
		l    = x.toolkit.logger.With(zap.String("contract", name))
	)

	txHash, vub, err := x.toolkit.management.Deploy(&x.contract.NEF, &x.contract.Manifest, deployData(args))
	if err != nil {
		return Contract{}, fmt.Errorf("send deployment transaction: %w", err)
	}

	l.Info("deployment transaction sent, waiting for confirmation...",
		zap.Stringer("tx", txHash), zap.Uint32("vub", vub))

	res, err := x.toolkit.actor.WaitAny(ctx, vub, txHash)
	if err != nil {
		return Contract{}, fmt.Errorf("wait for deployment transaction %s: %w", txHash.StringLE(), err)
	}

	if res.VMState != vmstate.Halt {
		return Contract{}, fmt.Errorf("%w: transaction %s, VM state %s: %s",
			ErrExecutionFault, txHash.StringLE(), res.VMState, res.FaultException)
	}

	return Contract{
		Name:        name,
		Address:     ContractAddress(x.toolkit.actor.Sender(), x.contract),
		Transaction: txHash,
		GasConsumed: res.GasConsumed,
	}, nil
}

// deployData converts constructor arguments into the data parameter of
// ContractManagement deploy method: no arguments become nil, the only
// argument is passed as is, multiple arguments are packed into an array.
func deployData(args []any) any {
	switch len(args) {
	case 0:
		return nil
	case 1:
		return args[0]
	default:
		return args
	}
}
