package profile_rebuild

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/lookbook-backend/internal/jobs/runtime"
	"github.com/yungbote/lookbook-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if p == nil || p.db == nil || p.interactions == nil || p.profiles == nil {
		jc.Fail("validate", fmt.Errorf("profile_rebuild: pipeline not configured"))
		return nil
	}

	if userID, ok := jc.PayloadUUID("user_id"); ok && userID != uuid.Nil {
		jc.Progress("rebuild", 0)
		if _, err := p.profiles.Rebuild(jc.Ctx, nil, userID); err != nil {
			jc.Fail("rebuild", err)
			return nil
		}
		jc.Succeed("done", map[string]any{"users": 1})
		return nil
	}

	jc.Progress("list_users", 0)
	since := time.Now().UTC().Add(-services.ProfileWindow)
	users, err := p.interactions.ListUsersActiveSince(jc.Ctx, nil, since)
	if err != nil {
		jc.Fail("list_users", err)
		return nil
	}
	if len(users) == 0 {
		jc.Succeed("done", map[string]any{"users": 0})
		return nil
	}

	rebuilt := 0
	failed := 0
	for i, userID := range users {
		if jc.Ctx.Err() != nil {
			jc.Fail("rebuild", jc.Ctx.Err())
			return nil
		}
		if _, err := p.profiles.Rebuild(jc.Ctx, nil, userID); err != nil {
			// one bad user must not sink the nightly batch
			p.log.Warn("profile rebuild failed", "user_id", userID.String(), "error", err.Error())
			failed++
			continue
		}
		rebuilt++
		if (i+1)%50 == 0 {
			jc.Progress("rebuild", (i+1)*100/len(users))
		}
	}

	jc.Succeed("done", map[string]any{"users": rebuilt, "failed": failed})
	return nil
}
