package contracts

import "github.com/julienschmidt/httprouter"

// Handler is an API surface mounted on the shared router.
type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Mount registers every handler on router.
func Mount(router *httprouter.Router, handlers ...Handler) {
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}
}
