package server

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"missionboard/internal/domain"
	"missionboard/internal/engine"
	"missionboard/internal/repo"
	"missionboard/internal/roles"
	"missionboard/internal/storage"
)

func registerUsers(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-user",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Register a user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body domain.User `json:"body"`
	}, error) {
		u, err := e.CreateUser(ctx, engine.UserCreateOptions{
			Email:              input.Body.Email,
			DisplayName:        input.Body.DisplayName,
			Roles:              input.Body.Roles,
			FeedPrivacyDefault: input.Body.FeedPrivacyDefault,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.User `json:"body"`
		}{Body: u}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user-profile",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}",
		Summary:     "User profile with level progression",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body engine.Profile `json:"body"`
	}, error) {
		p, err := e.UserProfile(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-user-level",
		Method:      http.MethodGet,
		Path:        "/users/{user_id}/level",
		Summary:     "Level progression only",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body LevelResponse `json:"body"`
	}, error) {
		p, err := e.UserProfile(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LevelResponse `json:"body"`
		}{Body: LevelResponse{
			Level:      p.Level,
			LevelPro:   p.LevelPro,
			LevelSolid: p.LevelSolid,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Profile of the authenticated user",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.Profile `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UserProfile(ctx, actor.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Profile `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-feed-privacy",
		Method:      http.MethodPatch,
		Path:        "/me/privacy",
		Summary:     "Set the default feed privacy",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SetPrivacyRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.SetFeedPrivacyDefault(ctx, actor.ID, input.Body.FeedPrivacyDefault); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"feed_privacy_default": input.Body.FeedPrivacyDefault}}, nil
	})
}

func registerMissions(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-mission",
		Method:        http.MethodPost,
		Path:          "/missions",
		Summary:       "Post a mission (pending admin approval)",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Body CreateMissionRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.CreateMission(ctx, actor, engine.MissionCreateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Space:       input.Body.Space,
			OrgID:       input.Body.OrgID,
			SlotsMax:    input.Body.SlotsMax,
			BaseXP:      input.Body.BaseXP,
			BonusXP:     input.Body.BonusXP,
			Hidden:      input.Body.Hidden,
			Featured:    input.Body.Featured,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-missions",
		Method:      http.MethodGet,
		Path:        "/missions",
		Summary:     "List missions",
	}, func(ctx context.Context, input *struct {
		Space  string `query:"space" enum:"pro,solidaire,"`
		Status string `query:"status" enum:"pending,open,closed,archived,"`
		Owner  string `query:"owner"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.Mission `json:"body"`
	}, error) {
		items, err := e.Repo.ListMissions(ctx, repo.MissionFilters{
			OwnerID: input.Owner,
			Space:   input.Space,
			Status:  input.Status,
			Limit:   input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Mission `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-mission",
		Method:      http.MethodGet,
		Path:        "/missions/{mission_id}",
		Summary:     "Get a mission",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		m, err := e.Repo.GetMission(ctx, input.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-mission",
		Method:      http.MethodPatch,
		Path:        "/missions/{mission_id}",
		Summary:     "Update mission details",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string               `path:"mission_id"`
		Body      UpdateMissionRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.UpdateMission(ctx, actor, input.MissionID, engine.MissionUpdateOptions{
			Title:       input.Body.Title,
			Description: input.Body.Description,
			SlotsMax:    input.Body.SlotsMax,
			BaseXP:      input.Body.BaseXP,
			BonusXP:     input.Body.BonusXP,
			Hidden:      input.Body.Hidden,
			Featured:    input.Body.Featured,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})

	type missionPath struct {
		MissionID string `path:"mission_id"`
	}
	missionAction := func(opID, pathSuffix, summary string, fn func(context.Context, roles.Actor, string) (domain.Mission, error)) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPatch,
			Path:        "/missions/{mission_id}/" + pathSuffix,
			Summary:     summary,
			Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
		}, func(ctx context.Context, input *missionPath) (*struct {
			Body domain.Mission `json:"body"`
		}, error) {
			actor, authErr := actorFromRequest(ctx, svc)
			if authErr != nil {
				return nil, authErr
			}
			m, err := fn(ctx, actor, input.MissionID)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Mission `json:"body"`
			}{Body: m}, nil
		})
	}
	missionAction("approve-mission", "approve", "Approve a pending mission", e.ApproveMission)
	missionAction("close-mission", "close", "Close an open mission and sweep feed posts", e.CloseMission)
	missionAction("reopen-mission", "reopen", "Reopen a closed mission", e.ReopenMission)

	huma.Register(api, huma.Operation{
		OperationID: "delete-mission",
		Method:      http.MethodDelete,
		Path:        "/missions/{mission_id}",
		Summary:     "Delete a mission and its dependent records",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *missionPath) (*struct{}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteMission(ctx, actor, input.MissionID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-mission",
		Method:      http.MethodPatch,
		Path:        "/missions/{mission_id}/reject",
		Summary:     "Archive a mission with a reason",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string               `path:"mission_id"`
		Body      RejectMissionRequest `json:"body"`
	}) (*struct {
		Body domain.Mission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.RejectMission(ctx, actor, input.MissionID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Mission `json:"body"`
		}{Body: m}, nil
	})
}

func registerApplications(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "apply-to-mission",
		Method:        http.MethodPost,
		Path:          "/missions/{mission_id}/apply",
		Summary:       "Apply to an open mission",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string       `path:"mission_id"`
		Body      ApplyRequest `json:"body"`
	}) (*struct {
		Body domain.Application `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.Apply(ctx, actor, input.MissionID, input.Body.Message)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Application `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-applications",
		Method:      http.MethodGet,
		Path:        "/missions/{mission_id}/applications",
		Summary:     "List a mission's applications",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
		Status    string `query:"status" enum:"pending,accepted,rejected,"`
	}) (*struct {
		Body []domain.Application `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.Repo.GetMission(ctx, input.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		if m.OwnerID != actor.ID && !actor.IsAdmin() {
			return nil, handleError(roles.ForbiddenError{Role: domain.RoleAdvertiser})
		}
		items, err := e.Repo.ListApplications(ctx, repo.ApplicationFilters{MissionID: m.ID, Status: input.Status})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Application `json:"body"`
		}{Body: items}, nil
	})

	decide := func(opID, suffix string, accept bool) {
		huma.Register(api, huma.Operation{
			OperationID: opID,
			Method:      http.MethodPost,
			Path:        "/applications/{application_id}/" + suffix,
			Summary:     "Decide a pending application",
			Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
		}, func(ctx context.Context, input *struct {
			ApplicationID string `path:"application_id"`
		}) (*struct {
			Body domain.Application `json:"body"`
		}, error) {
			actor, authErr := actorFromRequest(ctx, svc)
			if authErr != nil {
				return nil, authErr
			}
			a, err := e.DecideApplication(ctx, actor, input.ApplicationID, accept)
			if err != nil {
				return nil, handleError(err)
			}
			return &struct {
				Body domain.Application `json:"body"`
			}{Body: a}, nil
		})
	}
	decide("accept-application", "accept", true)
	decide("reject-application", "reject", false)
}

func registerSubmissions(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-submission",
		Method:        http.MethodPost,
		Path:          "/submissions",
		Summary:       "Submit proof of completed work",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateSubmissionRequest `json:"body"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.CreateSubmission(ctx, actor, engine.SubmissionCreateOptions{
			MissionID:       input.Body.MissionID,
			ProofURL:        input.Body.ProofURL,
			ProofShots:      input.Body.ProofShots,
			PrivacyOverride: input.Body.PrivacyOverride,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-submissions",
		Method:      http.MethodGet,
		Path:        "/missions/{mission_id}/submissions",
		Summary:     "List a mission's submissions",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
		Status    string `query:"status" enum:"pending,accepted,refused,"`
	}) (*struct {
		Body []domain.Submission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		m, err := e.Repo.GetMission(ctx, input.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		if m.OwnerID != actor.ID && !actor.IsAdmin() {
			return nil, handleError(roles.ForbiddenError{Role: domain.RoleAdvertiser})
		}
		items, err := e.Repo.ListSubmissions(ctx, repo.SubmissionFilters{MissionID: m.ID, Status: input.Status})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Submission `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-submission",
		Method:      http.MethodGet,
		Path:        "/submissions/{submission_id}",
		Summary:     "Get a submission",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string `path:"submission_id"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.Repo.GetSubmission(ctx, input.SubmissionID)
		if err != nil {
			return nil, handleError(err)
		}
		if s.UserID != actor.ID && !actor.IsAdmin() {
			m, err := e.Repo.GetMission(ctx, s.MissionID)
			if err != nil {
				return nil, handleError(err)
			}
			if m.OwnerID != actor.ID {
				return nil, handleError(roles.ForbiddenError{Role: domain.RoleAdvertiser})
			}
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-submission",
		Method:      http.MethodPost,
		Path:        "/submissions/{submission_id}/accept",
		Summary:     "Accept pending work and grant XP",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string `path:"submission_id"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.AcceptSubmission(ctx, actor, input.SubmissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refuse-submission",
		Method:      http.MethodPost,
		Path:        "/submissions/{submission_id}/refuse",
		Summary:     "Refuse pending work with a reason",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string                  `path:"submission_id"`
		Body         RefuseSubmissionRequest `json:"body"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.RefuseSubmission(ctx, actor, input.SubmissionID, input.Body.Reason)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: s}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deliver-reward",
		Method:      http.MethodPost,
		Path:        "/submissions/{submission_id}/reward",
		Summary:     "Record reward delivery for accepted work",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string               `path:"submission_id"`
		Body         DeliverRewardRequest `json:"body"`
	}) (*struct {
		Body domain.Submission `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.DeliverReward(ctx, actor, input.SubmissionID, input.Body.Note, input.Body.MediaPath)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Submission `json:"body"`
		}{Body: s}, nil
	})
}

func registerRatings(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "rate-mission",
		Method:        http.MethodPost,
		Path:          "/ratings",
		Summary:       "Rate a mission after accepted work",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body RateRequest `json:"body"`
	}) (*struct {
		Body domain.Rating `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		rt, err := e.Rate(ctx, actor, engine.RateOptions{
			MissionID:    input.Body.MissionID,
			SubmissionID: input.Body.SubmissionID,
			Score:        input.Body.Score,
			Comment:      input.Body.Comment,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Rating `json:"body"`
		}{Body: rt}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-ratings",
		Method:      http.MethodGet,
		Path:        "/missions/{mission_id}/ratings",
		Summary:     "List a mission's ratings",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		MissionID string `path:"mission_id"`
	}) (*struct {
		Body []domain.Rating `json:"body"`
	}, error) {
		if _, err := e.Repo.GetMission(ctx, input.MissionID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListRatingsForMission(ctx, input.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Rating `json:"body"`
		}{Body: items}, nil
	})
}

func registerThreads(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "open-direct-thread",
		Method:      http.MethodPost,
		Path:        "/threads/direct",
		Summary:     "Open (or reuse) a direct thread with another user",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body OpenThreadRequest `json:"body"`
	}) (*struct {
		Body domain.Thread `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		th, err := e.OpenDirectThread(ctx, actor, input.Body.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Thread `json:"body"`
		}{Body: th}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-threads",
		Method:      http.MethodGet,
		Path:        "/me/threads",
		Summary:     "List the authenticated user's threads",
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit"`
	}) (*struct {
		Body []domain.Thread `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListThreadsForUser(ctx, actor.ID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Thread `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "post-message",
		Method:        http.MethodPost,
		Path:          "/threads/{thread_id}/messages",
		Summary:       "Post a message in a thread",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ThreadID string             `path:"thread_id"`
		Body     PostMessageRequest `json:"body"`
	}) (*struct {
		Body domain.Message `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		msg, err := e.PostMessage(ctx, actor, input.ThreadID, input.Body.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Message `json:"body"`
		}{Body: msg}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-messages",
		Method:      http.MethodGet,
		Path:        "/threads/{thread_id}/messages",
		Summary:     "List a thread's messages in order",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ThreadID string `path:"thread_id"`
		Limit    int    `query:"limit"`
	}) (*struct {
		Body []domain.Message `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		th, err := e.Repo.GetThread(ctx, input.ThreadID)
		if err != nil {
			return nil, handleError(err)
		}
		if th.UserA != actor.ID && th.UserB != actor.ID && !actor.IsAdmin() {
			return nil, handleError(roles.ForbiddenError{Role: domain.RoleMissionary})
		}
		items, err := e.Repo.ListMessages(ctx, th.ID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Message `json:"body"`
		}{Body: items}, nil
	})
}

func registerFeed(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-feed",
		Method:      http.MethodGet,
		Path:        "/feed",
		Summary:     "List published feed posts",
	}, func(ctx context.Context, input *struct {
		Author string `query:"author"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.FeedPost `json:"body"`
	}, error) {
		items, err := e.Repo.ListFeedPosts(ctx, repo.FeedFilters{
			AuthorID:      input.Author,
			PublishedOnly: true,
			Limit:         input.Limit,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.FeedPost `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-feed-post",
		Method:        http.MethodPost,
		Path:          "/feed/posts",
		Summary:       "Create the feed post for an accepted submission",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body CreateFeedPostRequest `json:"body"`
	}) (*struct {
		Body domain.FeedPost `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.CreateFeedPost(ctx, actor, input.Body.SubmissionID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FeedPost `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "publish-feed-post",
		Method:      http.MethodPatch,
		Path:        "/feed/posts/{post_id}",
		Summary:     "Publish or hide a feed post",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PostID string                 `path:"post_id"`
		Body   PublishFeedPostRequest `json:"body"`
	}) (*struct {
		Body domain.FeedPost `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetFeedPostPublished(ctx, actor, input.PostID, input.Body.Published)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FeedPost `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "like-feed-post",
		Method:        http.MethodPost,
		Path:          "/feed/posts/{post_id}/like",
		Summary:       "Like a published feed post",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PostID string `path:"post_id"`
	}) (*struct {
		Body domain.FeedPost `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.LikeFeedPost(ctx, actor, input.PostID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FeedPost `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unlike-feed-post",
		Method:      http.MethodDelete,
		Path:        "/feed/posts/{post_id}/like",
		Summary:     "Remove a like",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PostID string `path:"post_id"`
	}) (*struct {
		Body domain.FeedPost `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.UnlikeFeedPost(ctx, actor, input.PostID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FeedPost `json:"body"`
		}{Body: p}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "comment-feed-post",
		Method:        http.MethodPost,
		Path:          "/feed/posts/{post_id}/comments",
		Summary:       "Comment on a published feed post",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PostID string                 `path:"post_id"`
		Body   CommentFeedPostRequest `json:"body"`
	}) (*struct {
		Body domain.FeedComment `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.CommentFeedPost(ctx, actor, input.PostID, input.Body.Body)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.FeedComment `json:"body"`
		}{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-feed-comments",
		Method:      http.MethodGet,
		Path:        "/feed/posts/{post_id}/comments",
		Summary:     "List a post's comments in order",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PostID string `path:"post_id"`
		Limit  int    `query:"limit"`
	}) (*struct {
		Body []domain.FeedComment `json:"body"`
	}, error) {
		if _, err := e.Repo.GetFeedPost(ctx, input.PostID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListFeedComments(ctx, input.PostID, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.FeedComment `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-feed-post",
		Method:      http.MethodDelete,
		Path:        "/feed/posts/{post_id}",
		Summary:     "Delete a feed post",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		PostID string `path:"post_id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteFeedPost(ctx, actor, input.PostID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerFollows(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID:   "follow-user",
		Method:        http.MethodPost,
		Path:          "/users/{user_id}/follow",
		Summary:       "Follow a user",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body domain.Follow `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		f, err := e.Follow(ctx, actor, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Follow `json:"body"`
		}{Body: f}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unfollow-user",
		Method:      http.MethodDelete,
		Path:        "/users/{user_id}/follow",
		Summary:     "Unfollow a user",
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Unfollow(ctx, actor, input.UserID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-following",
		Method:      http.MethodGet,
		Path:        "/me/following",
		Summary:     "List users the authenticated user follows",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Follow `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListFollowing(ctx, actor.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Follow `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-followers",
		Method:      http.MethodGet,
		Path:        "/me/followers",
		Summary:     "List the authenticated user's followers",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []domain.Follow `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListFollowers(ctx, actor.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Follow `json:"body"`
		}{Body: items}, nil
	})
}

func registerXP(api huma.API, e engine.Engine, svc roles.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "list-xp-events",
		Method:      http.MethodGet,
		Path:        "/me/xp/events",
		Summary:     "List the authenticated user's XP ledger",
	}, func(ctx context.Context, input *struct {
		Limit  int   `query:"limit"`
		Cursor int64 `query:"cursor"`
	}) (*struct {
		Body []domain.XpEvent `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListXpEvents(ctx, actor.ID, input.Limit, input.Cursor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.XpEvent `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rebuild-xp-counters",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/xp/rebuild",
		Summary:     "Rebuild cached XP counters from the ledger",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string `path:"user_id"`
	}) (*struct {
		Body engine.XpCounters `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		if !actor.IsAdmin() && actor.ID != input.UserID {
			return nil, handleError(roles.ForbiddenError{Role: domain.RoleAdmin})
		}
		counters, err := e.RebuildXpCounters(ctx, input.UserID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.XpCounters `json:"body"`
		}{Body: counters}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "grant-xp-bonus",
		Method:      http.MethodPost,
		Path:        "/users/{user_id}/xp/bonus",
		Summary:     "Grant a manual XP adjustment",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UserID string            `path:"user_id"`
		Body   AdminBonusRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.GrantAdminBonus(ctx, actor, input.UserID, input.Body.Delta, input.Body.Space); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "granted"}}, nil
	})
}

func registerNotifications(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-notifications",
		Method:      http.MethodGet,
		Path:        "/me/notifications",
		Summary:     "List the authenticated user's notifications",
	}, func(ctx context.Context, input *struct {
		Unread bool `query:"unread"`
		Limit  int  `query:"limit"`
	}) (*struct {
		Body []domain.Notification `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok || p.UserID == "" {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		items, err := e.Repo.ListNotifications(ctx, p.UserID, input.Unread, input.Limit)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Notification `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "read-notification",
		Method:      http.MethodPost,
		Path:        "/notifications/{notification_id}/read",
		Summary:     "Mark a notification as read",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		NotificationID string `path:"notification_id"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		p, ok := principalFromContext(ctx)
		if !ok || p.UserID == "" {
			return nil, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
		}
		now := time.Now().UTC().Format(time.RFC3339)
		if err := e.Repo.MarkNotificationRead(ctx, input.NotificationID, p.UserID, now); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "read"}}, nil
	})
}

func registerMedia(api huma.API, e engine.Engine, svc roles.Service, signer storage.Signer) {
	huma.Register(api, huma.Operation{
		OperationID: "sign-media-url",
		Method:      http.MethodPost,
		Path:        "/media/sign",
		Summary:     "Mint a signed URL for a stored media path",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body SignMediaRequest `json:"body"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if _, authErr := actorFromRequest(ctx, svc); authErr != nil {
			return nil, authErr
		}
		ttl := time.Duration(input.Body.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		url := signer.SignedURL(input.Body.Path, ttl)
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"url": url}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sign-reward-media",
		Method:      http.MethodGet,
		Path:        "/submissions/{submission_id}/reward/media",
		Summary:     "Mint a signed URL for the reward media",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		SubmissionID string `path:"submission_id"`
	}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx, svc)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.Repo.GetSubmission(ctx, input.SubmissionID)
		if err != nil {
			return nil, handleError(err)
		}
		m, err := e.Repo.GetMission(ctx, s.MissionID)
		if err != nil {
			return nil, handleError(err)
		}
		if s.UserID != actor.ID && m.OwnerID != actor.ID && !actor.IsAdmin() {
			return nil, handleError(roles.ForbiddenError{Role: domain.RoleAdvertiser})
		}
		if s.RewardMediaPath == nil {
			return nil, handleError(repo.ErrNotFound)
		}
		url := signer.SignedURL(*s.RewardMediaPath, 15*time.Minute)
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"url": url}}, nil
	})
}
