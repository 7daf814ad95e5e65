package strata

import (
	"github.com/stratadb/strata/db"
	"github.com/stratadb/strata/ps"
)

type Instance struct {
	Store *ps.Store
}

func Open(store *ps.Store) *Instance {
	return &Instance{
		Store: store,
	}
}

func (instance *Instance) Engine(cfg db.Config) *db.Engine {
	return db.NewEngine(instance.Store, cfg)
}
