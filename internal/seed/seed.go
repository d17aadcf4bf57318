// Package seed provides a small themed sample corpus for trying out the
// cluster view without bringing your own documents.
package seed

import (
	"context"

	"go.uber.org/zap"
)

// Ingestor receives the sample texts.
type Ingestor interface {
	Ingest(ctx context.Context, texts []string) ([]string, error)
}

// Corpus returns the built-in sample documents. Five loose themes, enough
// texts per theme for the cluster view to show meaningful folders.
func Corpus() []string {
	return append([]string(nil), sampleTexts...)
}

// Load ingests the sample corpus and returns the created document ids.
func Load(ctx context.Context, ing Ingestor, logger *zap.Logger) ([]string, error) {
	texts := Corpus()
	ids, err := ing.Ingest(ctx, texts)
	if err != nil {
		return nil, err
	}
	logger.Info("seeded sample corpus", zap.Int("documents", len(ids)))
	return ids, nil
}

var sampleTexts = []string{
	// space
	"The Voyager probes are still sending data from beyond the heliopause, decades after launch.",
	"A total solar eclipse happens when the moon passes directly between the earth and the sun.",
	"Mars rovers drill into ancient lake beds looking for traces of microbial life.",
	"The James Webb telescope observes in infrared to see the earliest galaxies forming.",
	"Neutron stars pack more mass than the sun into a sphere the size of a city.",

	// cooking
	"Let the dough rest overnight in the fridge and the crust will blister beautifully in a hot oven.",
	"Deglaze the pan with a splash of white wine and scrape up the browned bits for the sauce.",
	"A good stock simmers for hours, never boils, and gets skimmed along the way.",
	"Toast the spices in a dry skillet before grinding to wake up their aroma.",
	"Fold the egg whites into the batter gently or the souffle will never rise.",

	// programming
	"The race condition only showed up under load because two goroutines shared a map without a lock.",
	"Refactoring the parser into small functions made the error messages much easier to test.",
	"Continuous integration runs the linter and the full test suite on every push.",
	"The database migration added an index and cut the query time from seconds to milliseconds.",
	"Code review caught an off-by-one error in the pagination logic before release.",

	// nature
	"The old growth forest holds moisture through the dry season under its closed canopy.",
	"Salmon return from the ocean to spawn in the same gravel beds where they hatched.",
	"Lichens colonize bare rock first and slowly build the soil other plants need.",
	"Migrating cranes ride thermal currents to cross the mountain passes.",
	"Tide pools trap anemones, hermit crabs, and urchins between the high and low water marks.",

	// finance
	"Diversifying across asset classes softens the impact of a downturn in any single market.",
	"The central bank raised interest rates again to cool persistent inflation.",
	"Compound interest rewards starting early far more than contributing more later.",
	"Quarterly earnings beat expectations and the stock gapped up at the open.",
	"An emergency fund covering six months of expenses keeps a job loss from becoming a crisis.",
}
