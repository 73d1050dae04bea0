package status

import (
	"fmt"

	"github.com/deploymenttheory/go-bootctl/internal/types"
	"github.com/deploymenttheory/go-bootctl/pkg/app"
)

// Handle refreshes the session and reports slot status
func Handle(ctx *app.Context, session *app.Session) (*Response, error) {
	if err := session.Refresh(); err != nil {
		return nil, err
	}

	resp := FromSnapshot(session.Snapshot())
	ctx.Log(fmt.Sprintf("Slot authority: %s", resp.Authority))

	AddCurrentSlot(ctx, session, resp)
	return resp, nil
}

// AddCurrentSlot fills in the running slot. A missing slot suffix is logged, not fatal.
func AddCurrentSlot(ctx *app.Context, session *app.Session, resp *Response) {
	slot, err := session.CurrentSlot()
	if err != nil {
		ctx.Log(fmt.Sprintf("Current slot unknown: %v", err))
		return
	}
	resp.CurrentSlot = types.SlotSuffix(slot)
	resp.CurrentSlotOK = true
}
