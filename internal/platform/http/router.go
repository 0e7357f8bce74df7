package http

import (
	"encoding/json"
	stdhttp "net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/neighborly/go-neighborhood-api/internal/app/controllers"
	"github.com/neighborly/go-neighborhood-api/internal/platform/middleware"
)

type RouterConfig struct {
	CommunityCtrl *controllers.CommunityController
	GroupCtrl     *controllers.GroupController
	ListingCtrl   *controllers.ListingController
	ResolveUser   middleware.UserResolver
	Logger        *logrus.Entry
}

func NewRouter(cfg RouterConfig) stdhttp.Handler {
	mux := stdhttp.NewServeMux()

	mux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path != "/" {
			w.WriteHeader(stdhttp.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "endpoint not found"})
			return
		}
		if r.Method != stdhttp.MethodGet {
			w.WriteHeader(stdhttp.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":      "ok",
			"name":        "Neighborhood API",
			"version":     "0.1.0",
			"description": "neighborhood sharing platform",
			"endpoints": map[string]string{
				"health":      "/health",
				"communities": "/communities",
				"groups":      "/groups",
				"listings":    "/listings",
			},
		})
	})

	mux.HandleFunc("/health", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	splitSegments := func(path, prefix string) []string {
		raw := strings.Split(strings.TrimPrefix(path, prefix), "/")
		out := make([]string, 0, len(raw))
		for _, segment := range raw {
			if segment == "" {
				continue
			}
			out = append(out, segment)
		}
		return out
	}

	methodNotAllowed := func(w stdhttp.ResponseWriter) {
		w.WriteHeader(stdhttp.StatusMethodNotAllowed)
	}

	// --- /communities ---
	communityMux := stdhttp.NewServeMux()
	communityMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		segments := splitSegments(r.URL.Path, "/communities")
		if len(segments) == 0 {
			switch r.Method {
			case stdhttp.MethodGet:
				cfg.CommunityCtrl.ListMine(w, r)
			case stdhttp.MethodPost:
				cfg.CommunityCtrl.Create(w, r)
			default:
				methodNotAllowed(w)
			}
			return
		}

		id := segments[0]
		rest := segments[1:]
		if len(rest) == 0 {
			switch r.Method {
			case stdhttp.MethodGet:
				cfg.CommunityCtrl.Get(w, r, id)
			case stdhttp.MethodPatch:
				cfg.CommunityCtrl.Update(w, r, id)
			case stdhttp.MethodDelete:
				cfg.CommunityCtrl.Delete(w, r, id)
			default:
				methodNotAllowed(w)
			}
			return
		}

		switch rest[0] {
		case "members":
			if len(rest) == 1 && r.Method == stdhttp.MethodGet {
				cfg.CommunityCtrl.ListMembers(w, r, id)
				return
			}
			if len(rest) == 2 && r.Method == stdhttp.MethodDelete {
				cfg.CommunityCtrl.RemoveMember(w, r, id, rest[1])
				return
			}
			methodNotAllowed(w)
		case "leave":
			if len(rest) == 1 && r.Method == stdhttp.MethodPost {
				cfg.CommunityCtrl.Leave(w, r, id)
				return
			}
			methodNotAllowed(w)
		case "groups":
			if len(rest) == 1 && r.Method == stdhttp.MethodGet {
				cfg.GroupCtrl.ListByCommunity(w, r, id)
				return
			}
			methodNotAllowed(w)
		case "invite":
			if len(rest) == 1 && r.Method == stdhttp.MethodGet {
				cfg.CommunityCtrl.Invite(w, r, id)
				return
			}
			if len(rest) == 2 && rest[1] == "refresh" && r.Method == stdhttp.MethodPost {
				cfg.CommunityCtrl.RefreshInvite(w, r, id)
				return
			}
			if len(rest) == 2 && rest[1] == "qr" && r.Method == stdhttp.MethodGet {
				cfg.CommunityCtrl.InviteQR(w, r, id)
				return
			}
			methodNotAllowed(w)
		default:
			w.WriteHeader(stdhttp.StatusNotFound)
		}
	})

	// --- /groups ---
	groupMux := stdhttp.NewServeMux()
	groupMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		segments := splitSegments(r.URL.Path, "/groups")
		if len(segments) == 0 {
			if r.Method == stdhttp.MethodPost {
				cfg.GroupCtrl.Create(w, r)
				return
			}
			methodNotAllowed(w)
			return
		}

		id := segments[0]
		rest := segments[1:]
		if len(rest) == 0 {
			switch r.Method {
			case stdhttp.MethodGet:
				cfg.GroupCtrl.Get(w, r, id)
			case stdhttp.MethodPatch:
				cfg.GroupCtrl.Update(w, r, id)
			case stdhttp.MethodDelete:
				cfg.GroupCtrl.Delete(w, r, id)
			default:
				methodNotAllowed(w)
			}
			return
		}

		switch rest[0] {
		case "members":
			if len(rest) == 1 && r.Method == stdhttp.MethodGet {
				cfg.GroupCtrl.ListMembers(w, r, id)
				return
			}
			if len(rest) == 2 && r.Method == stdhttp.MethodDelete {
				cfg.GroupCtrl.RemoveMember(w, r, id, rest[1])
				return
			}
			methodNotAllowed(w)
		case "leave":
			if len(rest) == 1 && r.Method == stdhttp.MethodPost {
				cfg.GroupCtrl.Leave(w, r, id)
				return
			}
			methodNotAllowed(w)
		case "invite":
			if len(rest) == 1 && r.Method == stdhttp.MethodGet {
				cfg.GroupCtrl.Invite(w, r, id)
				return
			}
			if len(rest) == 2 && rest[1] == "refresh" && r.Method == stdhttp.MethodPost {
				cfg.GroupCtrl.RefreshInvite(w, r, id)
				return
			}
			if len(rest) == 2 && rest[1] == "qr" && r.Method == stdhttp.MethodGet {
				cfg.GroupCtrl.InviteQR(w, r, id)
				return
			}
			methodNotAllowed(w)
		default:
			w.WriteHeader(stdhttp.StatusNotFound)
		}
	})

	// --- /listings ---
	listingMux := stdhttp.NewServeMux()
	listingMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		segments := splitSegments(r.URL.Path, "/listings")
		if len(segments) == 0 {
			switch r.Method {
			case stdhttp.MethodGet:
				cfg.ListingCtrl.List(w, r)
			case stdhttp.MethodPost:
				cfg.ListingCtrl.Create(w, r)
			default:
				methodNotAllowed(w)
			}
			return
		}

		id := segments[0]
		rest := segments[1:]
		if len(rest) == 0 {
			switch r.Method {
			case stdhttp.MethodGet:
				cfg.ListingCtrl.Get(w, r, id)
			case stdhttp.MethodPatch:
				cfg.ListingCtrl.Update(w, r, id)
			case stdhttp.MethodDelete:
				cfg.ListingCtrl.Delete(w, r, id)
			default:
				methodNotAllowed(w)
			}
			return
		}

		if rest[0] == "photos" && len(rest) == 1 && r.Method == stdhttp.MethodPost {
			cfg.ListingCtrl.UploadPhoto(w, r, id)
			return
		}
		w.WriteHeader(stdhttp.StatusNotFound)
	})

	authed := middleware.BearerAuth(cfg.ResolveUser)

	// /communities/join?token= and /groups/join?token=. The GET preview is a
	// pre-join lookup that never uses the caller identity, so it stays open;
	// the POST that creates the membership still requires a token.
	joinRoute := func(preview stdhttp.HandlerFunc, join stdhttp.HandlerFunc) stdhttp.Handler {
		authedJoin := authed(join)
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			switch r.Method {
			case stdhttp.MethodGet:
				preview(w, r)
			case stdhttp.MethodPost:
				authedJoin.ServeHTTP(w, r)
			default:
				methodNotAllowed(w)
			}
		})
	}
	mux.Handle("/communities/join", joinRoute(cfg.CommunityCtrl.Preview, cfg.CommunityCtrl.Join))
	mux.Handle("/groups/join", joinRoute(cfg.GroupCtrl.Preview, cfg.GroupCtrl.Join))

	mux.Handle("/communities", authed(communityMux))
	mux.Handle("/communities/", authed(communityMux))
	mux.Handle("/groups", authed(groupMux))
	mux.Handle("/groups/", authed(groupMux))
	mux.Handle("/listings", authed(listingMux))
	mux.Handle("/listings/", authed(listingMux))

	var handler stdhttp.Handler = mux
	handler = middleware.Logging(cfg.Logger)(handler)
	handler = middleware.CORS(handler)
	return handler
}
