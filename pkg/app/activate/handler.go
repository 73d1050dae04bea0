package activate

import (
	"fmt"

	"github.com/deploymenttheory/go-bootctl/internal/types"
	"github.com/deploymenttheory/go-bootctl/pkg/app"
	"github.com/deploymenttheory/go-bootctl/pkg/app/status"
)

// Handle activates the requested slot and reports the refreshed status
func Handle(ctx *app.Context, session *app.Session, req *Request) (*status.Response, error) {
	slot, err := req.Validate()
	if err != nil {
		return nil, err
	}

	if err := session.Refresh(); err != nil {
		return nil, err
	}

	ctx.Log(fmt.Sprintf("Activating slot %s", types.SlotSuffix(slot)))
	if err := session.Activate(slot); err != nil {
		return nil, err
	}

	resp := status.FromSnapshot(session.Snapshot())
	status.AddCurrentSlot(ctx, session, resp)
	return resp, nil
}

// HandleMarkSuccessful marks the running slot successful and reports the refreshed status
func HandleMarkSuccessful(ctx *app.Context, session *app.Session) (*status.Response, error) {
	if err := session.Refresh(); err != nil {
		return nil, err
	}

	ctx.Log("Marking current slot successful")
	if err := session.MarkBootSuccessful(); err != nil {
		return nil, err
	}

	resp := status.FromSnapshot(session.Snapshot())
	status.AddCurrentSlot(ctx, session, resp)
	return resp, nil
}
