package generations

import (
	"context"
	"fmt"

	"github.com/studioshot/platform/internal/app/domain/generation"
	"github.com/studioshot/platform/internal/app/domain/team"
	"github.com/studioshot/platform/internal/app/storage"
	"github.com/studioshot/platform/internal/imaging"
	"github.com/studioshot/platform/internal/objectstore"
	"github.com/studioshot/platform/internal/provider"
	"github.com/studioshot/platform/pkg/logger"
)

// Pipeline runs one generation end to end: composite the selfies, call the
// model, brand the results, and store everything.
type Pipeline struct {
	service    *Service
	selfies    storage.SelfieStore
	contexts   storage.ContextStore
	objects    objectstore.Store
	generator  provider.ImageGenerator
	photoCount int
	log        *logger.Logger
}

// NewPipeline constructs a pipeline. photoCount is how many headshots each
// run requests from the model.
func NewPipeline(service *Service, selfies storage.SelfieStore, contexts storage.ContextStore,
	objects objectstore.Store, generator provider.ImageGenerator, photoCount int, log *logger.Logger) *Pipeline {
	if photoCount < 1 {
		photoCount = 4
	}
	if log == nil {
		log = logger.NewDefault("generation-pipeline")
	}
	return &Pipeline{
		service:    service,
		selfies:    selfies,
		contexts:   contexts,
		objects:    objects,
		generator:  generator,
		photoCount: photoCount,
		log:        log,
	}
}

// Run executes the pipeline for a generation already in processing state and
// completes it. Errors leave the record in processing; the caller decides
// between retry and Fail.
func (p *Pipeline) Run(ctx context.Context, g generation.Generation) error {
	var bc team.BrandContext
	if g.ContextID != "" {
		var err error
		bc, err = p.contexts.GetBrandContext(ctx, g.ContextID)
		if err != nil {
			return fmt.Errorf("load context: %w", err)
		}
	}

	composite, err := p.buildComposite(ctx, g)
	if err != nil {
		return err
	}

	compositeKey := fmt.Sprintf("composites/%s.jpg", g.ID)
	if err := p.objects.Put(ctx, compositeKey, "image/jpeg", composite); err != nil {
		return fmt.Errorf("store composite: %w", err)
	}
	if _, err := p.service.SetComposite(ctx, g.ID, compositeKey); err != nil {
		return fmt.Errorf("record composite: %w", err)
	}

	photos, err := p.generator.GenerateHeadshots(ctx, provider.GenerateRequest{
		Composite:  composite,
		Style:      g.Style,
		Background: bc.Background,
		Clothing:   bc.Clothing,
		Count:      p.photoCount,
	})
	if err != nil {
		return fmt.Errorf("generate headshots: %w", err)
	}

	var logo []byte
	if bc.LogoKey != "" {
		obj, err := p.objects.Get(ctx, bc.LogoKey)
		if err != nil {
			return fmt.Errorf("load logo: %w", err)
		}
		logo, err = p.generator.RemoveBackground(ctx, obj.Data)
		if err != nil {
			return fmt.Errorf("prepare logo: %w", err)
		}
	}

	resultKeys := make([]string, 0, len(photos))
	for i, photo := range photos {
		if logo != nil {
			photo, err = imaging.OverlayLogo(photo, logo)
			if err != nil {
				return fmt.Errorf("brand photo %d: %w", i, err)
			}
		}
		key := fmt.Sprintf("generations/%s/%d.jpg", g.ID, i)
		if err := p.objects.Put(ctx, key, "image/jpeg", photo); err != nil {
			return fmt.Errorf("store photo %d: %w", i, err)
		}
		resultKeys = append(resultKeys, key)
	}

	if _, err := p.service.Complete(ctx, g.ID, resultKeys); err != nil {
		return fmt.Errorf("complete generation: %w", err)
	}
	return nil
}

func (p *Pipeline) buildComposite(ctx context.Context, g generation.Generation) ([]byte, error) {
	owned, err := p.selfies.ListSelfies(ctx, g.PersonID)
	if err != nil {
		return nil, fmt.Errorf("list selfies: %w", err)
	}
	if len(owned) < 2 {
		return nil, fmt.Errorf("person %s has %d selfies, need at least 2", g.PersonID, len(owned))
	}

	photos := make([][]byte, 0, len(owned))
	for _, record := range owned {
		obj, err := p.objects.Get(ctx, record.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("load selfie %s: %w", record.ID, err)
		}
		photos = append(photos, obj.Data)
	}
	return imaging.BuildComposite(photos)
}
