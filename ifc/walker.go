package ifc

import (
	"context"
	"fmt"
	"ifcserver/models"
	"log"
)

// Element is the flattened attribute set of one entity instance
type Element struct {
	ExpressID  int64
	Attributes models.Attributes
}

type WalkResult struct {
	Schema   string
	Total    int // instances declared by the file
	Elements []Element
	Failed   []int64 // instances skipped because their statement was malformed
	Skipped  int     // statements without a valid instance name, not in Total
}

// Walk opens the file at path and flattens every entity instance in it.
// Container level failures abort the walk with an error matching
// ErrParseFailure; malformed single instances are logged and skipped.
func Walk(ctx context.Context, path string) (*WalkResult, error) {
	model, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer model.Close()

	ids := model.IDs()
	result := &WalkResult{
		Schema:   model.Schema(),
		Total:    len(ids),
		Elements: make([]Element, 0, len(ids)),
		Skipped:  model.Skipped(),
	}
	log.Printf("Processing %d IFC elements of %s (schema %q)", len(ids), path, model.Schema())
	for i, id := range ids {
		if i%1024 == 0 {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := record(model, id)
		if err != nil {
			log.Printf("Failed to extract properties for express ID %d: %v", id, err)
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Elements = append(result.Elements, Element{ExpressID: id, Attributes: Flatten(rec)})
	}
	log.Printf("Extracted properties for %d of %d IFC elements of %s", len(result.Elements), len(ids), path)
	return result, nil
}

// record isolates a panic while parsing one instance to that instance
func record(model *Model, id int64) (rec *Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ElementError{ExpressID: id, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return model.Record(id)
}
