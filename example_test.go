package connect_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/petrijr/connect"
	"github.com/petrijr/connect/pkg/api"
)

// Example_processor runs a two-step flow over in-memory requests. The
// first step stores request fields in the context and hands the request
// id on; the second prints them.
func Example_processor() {
	ctx := context.Background()

	src, err := connect.NewMemorySource(
		&connect.Request{ID: "PR-1", Status: connect.StatusPending, Asset: api.Asset{
			ID:         "AS-1",
			Connection: api.Connection{ID: "CT-1"},
			Product:    api.Product{ID: "PRD-1"},
		}},
		&connect.Request{ID: "PR-2", Status: connect.StatusApproved, Asset: api.Asset{ID: "AS-2"}},
	)
	if err != nil {
		log.Fatal(err)
	}

	flow := connect.NewFlow("Basic Flow", nil).
		Step("Add request data", connect.CollectRequestData()).
		Step("Trace request data", connect.TraceRequestData(os.Stdout))

	res, err := connect.NewProcessor(src).
		Flow(flow.Definition()).
		ProcessAssetRequests(ctx, connect.NewQuery().
			Equal("asset.product.id__in", "PRD-1,PRD-2").
			Equal("status", "pending"))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("processed %d request(s)\n", res.Processed)
	// Output:
	// PR-1 : AS-1 : CT-1 : PRD-1 : pending
	// processed 1 request(s)
}

// Example_handOff shows a step receiving the value returned by the step
// before it.
func Example_handOff() {
	src, _ := connect.NewMemorySource(&connect.Request{ID: "R1", Status: connect.StatusPending, Asset: api.Asset{ID: "A1"}})

	_, err := connect.NewProcessor(src).
		Step("A", func(ctx context.Context, fc *connect.FlowContext, _ any) (any, error) {
			fc.SetData("assetId", fc.Request().Asset.ID)
			return fc.Request().ID, nil
		}).
		Step("B", func(ctx context.Context, fc *connect.FlowContext, id any) (any, error) {
			fmt.Printf("%v : %s\n", id, fc.DataString("assetId"))
			return nil, nil
		}).
		ProcessAssetRequests(context.Background(), nil)
	if err != nil {
		log.Fatal(err)
	}
	// Output:
	// R1 : A1
}
