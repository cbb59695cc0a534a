package decisionengine

import (
	"log/slog"
	"time"

	httpadapter "quorum/contexts/decision-governance/decision-engine/adapters/http"
	"quorum/contexts/decision-governance/decision-engine/adapters/memory"
	"quorum/contexts/decision-governance/decision-engine/application/commands"
	"quorum/contexts/decision-governance/decision-engine/application/queries"
	"quorum/contexts/decision-governance/decision-engine/domain/entities"
	"quorum/contexts/decision-governance/decision-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Ledger        ports.DecisionLedger
	Directory     ports.EligibilityDirectory
	Anchor        ports.AnchorClient
	Outbox        ports.OutboxWriter
	TallyCache    ports.TallyCache
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	AnchorTimeout time.Duration
	TallyCacheTTL time.Duration
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	submitUseCase := commands.SubmitDecisionUseCase{
		Ledger:        deps.Ledger,
		Directory:     deps.Directory,
		Anchor:        deps.Anchor,
		Outbox:        deps.Outbox,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		AnchorTimeout: deps.AnchorTimeout,
		Logger:        deps.Logger,
	}
	tallyUseCase := queries.TallyUseCase{
		Ledger:    deps.Ledger,
		Directory: deps.Directory,
		Cache:     deps.TallyCache,
		CacheTTL:  deps.TallyCacheTTL,
		Logger:    deps.Logger,
	}
	lookupUseCase := queries.LookupUseCase{
		Ledger:    deps.Ledger,
		Directory: deps.Directory,
		Anchor:    deps.Anchor,
	}
	return Module{
		Handler: httpadapter.Handler{
			Submissions: submitUseCase,
			Tallies:     tallyUseCase,
			Lookups:     lookupUseCase,
			Logger:      deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Decision, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ledger:        store,
		Directory:     store,
		Anchor:        store,
		Outbox:        store,
		Clock:         store,
		IDGen:         store,
		AnchorTimeout: 3 * time.Second,
		Logger:        logger,
	})
	module.Store = store
	return module
}
