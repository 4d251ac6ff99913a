// Package app wires the domain services together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	creditsvc "github.com/studioshot/platform/internal/app/services/credits"
	feedbacksvc "github.com/studioshot/platform/internal/app/services/feedback"
	generationsvc "github.com/studioshot/platform/internal/app/services/generations"
	"github.com/studioshot/platform/internal/app/services/maintenance"
	personsvc "github.com/studioshot/platform/internal/app/services/persons"
	selfiesvc "github.com/studioshot/platform/internal/app/services/selfies"
	teamsvc "github.com/studioshot/platform/internal/app/services/teams"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/internal/app/storage/memory"
	"github.com/studioshot/platform/internal/app/system"
	"github.com/studioshot/platform/internal/objectstore"
	"github.com/studioshot/platform/internal/provider"
	"github.com/studioshot/platform/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Persons     storage.PersonStore
	Teams       storage.TeamStore
	Invites     storage.InviteStore
	Contexts    storage.ContextStore
	Selfies     storage.SelfieStore
	Generations storage.GenerationStore
	Credits     storage.CreditStore
	Feedback    storage.FeedbackStore
}

// Options tunes the workflow services.
type Options struct {
	// Objects holds the blobs; nil defaults to the in-memory store.
	Objects objectstore.Store
	// Generator runs the AI calls; nil disables the worker.
	Generator provider.ImageGenerator

	PhotoCount          int
	RegenerationLimit   int
	WorkerInterval      time.Duration
	WorkerMaxAttempts   int
	MaintenanceSchedule string
	StuckAfter          time.Duration
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Objects objectstore.Store

	Persons     *personsvc.Service
	Teams       *teamsvc.Service
	Selfies     *selfiesvc.Service
	Credits     *creditsvc.Service
	Generations *generationsvc.Service
	Feedback    *feedbacksvc.Service
	Sweeper     *maintenance.Sweeper
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Persons == nil {
		stores.Persons = mem
	}
	if stores.Teams == nil {
		stores.Teams = mem
	}
	if stores.Invites == nil {
		stores.Invites = mem
	}
	if stores.Contexts == nil {
		stores.Contexts = mem
	}
	if stores.Selfies == nil {
		stores.Selfies = mem
	}
	if stores.Generations == nil {
		stores.Generations = mem
	}
	if stores.Credits == nil {
		stores.Credits = mem
	}
	if stores.Feedback == nil {
		stores.Feedback = mem
	}
	if opts.Objects == nil {
		opts.Objects = objectstore.NewMemory()
	}
	if opts.RegenerationLimit <= 0 {
		opts.RegenerationLimit = 3
	}

	manager := system.NewManager()

	personService := personsvc.New(stores.Persons, log)
	teamService := teamsvc.New(stores.Teams, stores.Invites, stores.Contexts, stores.Persons, stores.Selfies, log)
	selfieService := selfiesvc.New(stores.Selfies, stores.Persons, opts.Objects, log)
	creditService := creditsvc.New(stores.Credits, stores.Persons, log)
	generationService := generationsvc.New(stores.Generations, stores.Selfies, stores.Contexts,
		stores.Persons, creditService, opts.RegenerationLimit, log)
	feedbackService := feedbacksvc.New(stores.Feedback, log)

	var pipeline *generationsvc.Pipeline
	if opts.Generator != nil {
		pipeline = generationsvc.NewPipeline(generationService, stores.Selfies, stores.Contexts,
			opts.Objects, opts.Generator, opts.PhotoCount, log)
	}
	worker := generationsvc.NewWorker(generationService, pipeline, opts.WorkerInterval, opts.WorkerMaxAttempts, log)

	sweeper := maintenance.NewSweeper(teamService, generationService, stores.Generations,
		opts.MaintenanceSchedule, opts.StuckAfter, log)

	for _, svc := range []system.Service{worker, sweeper} {
		if err := manager.Register(svc); err != nil {
			return nil, fmt.Errorf("register %s: %w", svc.Name(), err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		Objects:     opts.Objects,
		Persons:     personService,
		Teams:       teamService,
		Selfies:     selfieService,
		Credits:     creditService,
		Generations: generationService,
		Feedback:    feedbackService,
		Sweeper:     sweeper,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
