package processors

import (
	"context"
	"log/slog"

	"idsync/internal/account"
	"idsync/internal/provisioning/event"
	id "idsync/pkg/domain"
)

// contractOrder runs after realization so the owning operation settles first.
const contractOrder = 100

const defaultSubordinateBatch = 200

// EntityProvisioner pushes the current state of an entity to every system it
// is linked to. Implemented by the provisioning service.
type EntityProvisioner interface {
	ProvisionEntity(ctx context.Context, entityID id.EntityID) error
}

// EventSubmitter hands an event to the asynchronous dispatcher.
type EventSubmitter interface {
	Submit(ctx context.Context, ev *event.Event) error
}

// ContractProvisioningProcessor cascades a contract change to the identities
// whose manager relation it affects. A deleted or re-parented contract changes
// the manager's subordinate set, so besides the contract's own identity the
// processor re-provisions every identity that entered or left that set.
//
// DELETE events run the cascade inline. NOTIFY events are re-submitted to the
// async dispatcher as DELETE so large subordinate trees never block the
// caller.
type ContractProvisioningProcessor struct {
	contracts   account.ContractStore
	provisioner EntityProvisioner
	dispatcher  EventSubmitter
	batchSize   int
	logger      *slog.Logger
}

func NewContractProvisioningProcessor(contracts account.ContractStore, provisioner EntityProvisioner, dispatcher EventSubmitter, logger *slog.Logger) *ContractProvisioningProcessor {
	return &ContractProvisioningProcessor{
		contracts:   contracts,
		provisioner: provisioner,
		dispatcher:  dispatcher,
		batchSize:   defaultSubordinateBatch,
		logger:      logger,
	}
}

func (p *ContractProvisioningProcessor) Name() string { return "contract-provisioning" }

func (p *ContractProvisioningProcessor) Order() int { return contractOrder }

func (p *ContractProvisioningProcessor) EventTypes() []event.Type {
	return []event.Type{event.TypeDelete, event.TypeNotify}
}

func (p *ContractProvisioningProcessor) Conditional(_ context.Context, ev *event.Event) bool {
	_, ok := ev.Content.(*account.Contract)
	return ok
}

func (p *ContractProvisioningProcessor) Process(ctx context.Context, ev *event.Event) error {
	contract := ev.Content.(*account.Contract)

	if ev.Type == event.TypeNotify {
		if p.dispatcher == nil {
			// No dispatcher wired, degrade to the inline cascade.
			return p.cascade(ctx, ev, contract)
		}
		deferred := &event.Event{
			ID:            id.NewOperationID(),
			Type:          event.TypeDelete,
			Content:       contract,
			Priority:      ev.Priority,
			TransactionID: ev.TransactionID,
		}
		if prev, ok := ev.PreviousSubordinates(); ok {
			deferred.SetPreviousSubordinates(prev)
		}
		p.logger.DebugContext(ctx, "contract cascade deferred to dispatcher",
			"contract_id", contract.ID.String())
		return p.dispatcher.Submit(ctx, deferred)
	}

	return p.cascade(ctx, ev, contract)
}

// cascade re-provisions the contract's identity plus the symmetric difference
// between the subordinate set captured on the event and the current one. The
// current set is read in bounded batches so a wide tree never loads at once.
func (p *ContractProvisioningProcessor) cascade(ctx context.Context, ev *event.Event, contract *account.Contract) error {
	if err := p.provisioner.ProvisionEntity(ctx, contract.IdentityID); err != nil {
		return err
	}

	previous, _ := ev.PreviousSubordinates()
	current := make(map[id.EntityID]struct{})
	if contract.ManagerID != nil {
		err := p.contracts.StreamSubordinates(ctx, *contract.ManagerID, p.batchSize, func(batch []id.EntityID) error {
			for _, sub := range batch {
				current[sub] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	prevSet := make(map[id.EntityID]struct{}, len(previous))
	for _, sub := range previous {
		prevSet[sub] = struct{}{}
	}

	affected := 0
	provision := func(entityID id.EntityID) error {
		if entityID == contract.IdentityID {
			return nil
		}
		affected++
		return p.provisioner.ProvisionEntity(ctx, entityID)
	}
	for _, sub := range previous {
		if _, still := current[sub]; !still {
			if err := provision(sub); err != nil {
				return err
			}
		}
	}
	for sub := range current {
		if _, was := prevSet[sub]; !was {
			if err := provision(sub); err != nil {
				return err
			}
		}
	}

	p.logger.InfoContext(ctx, "contract cascade completed",
		"contract_id", contract.ID.String(),
		"identity_id", contract.IdentityID.String(),
		"affected_subordinates", affected,
	)
	return nil
}
