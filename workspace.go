package geostore

import (
	"errors"
	"fmt"

	"github.com/hupe1980/geostore/concat"
	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
	"github.com/hupe1980/geostore/geometry"
	"github.com/hupe1980/geostore/registry"
	"github.com/hupe1980/geostore/survey"
)

// rootAttrName is where the root group identifier persists, keyed on
// the nil uid so it can be found before any entity is resolved.
const rootAttrName = "Root"

// Workspace is an open store session: the identity registry, the root
// of the parent/children tree and the container everything persists
// into.
//
// All registry and lifecycle state is scoped to the Workspace; two
// workspaces over two files never share entities.
type Workspace struct {
	store container.Store
	reg   *registry.Registry
	log   *Logger

	root       *Group
	rootHandle *registry.Handle
}

// Open opens a workspace over the given container. A container that
// already holds a store is resumed; an empty one is initialized.
func Open(store container.Store, opts ...Option) (*Workspace, error) {
	o := options{logger: NoopLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	ws := &Workspace{
		store: store,
		log:   o.logger,
		reg:   registry.New(o.logger.Logger),
	}

	root := NewGroup("Workspace")
	rawRoot, err := store.ReadAttribute(core.NilUID, rootAttrName)
	switch {
	case err == nil:
		uid, perr := core.ParseUID(string(rawRoot))
		if perr != nil {
			return nil, fmt.Errorf("corrupt root identifier %q: %w", rawRoot, perr)
		}
		root.SetUID(uid)
	case errors.Is(err, core.ErrNotFound):
		// Fresh container; the root uid persists on first save.
	default:
		return nil, err
	}

	h, err := ws.reg.Register(root)
	if err != nil {
		return nil, err
	}
	ws.root = root
	ws.rootHandle = h
	return ws, nil
}

// Store returns the underlying container.
func (ws *Workspace) Store() container.Store { return ws.store }

// Registry returns the identity registry of this session.
func (ws *Workspace) Registry() *registry.Registry { return ws.reg }

// Root returns the root group of the parent/children tree.
func (ws *Workspace) Root() *Group { return ws.root }

// register pins ent under the root group.
func (ws *Workspace) register(ent registry.Entity) error {
	h, err := ws.reg.Register(ent)
	if err != nil {
		return err
	}
	ws.root.pin(h)
	return nil
}

// CreateGroup creates and registers a plain group under the root.
func (ws *Workspace) CreateGroup(name string) (*Group, error) {
	g := NewGroup(name)
	g.SetParent(ws.root.UID())
	if err := ws.register(g); err != nil {
		return nil, err
	}
	return g, nil
}

// CreatePoints creates and registers a Points object under the root.
// vertices accepts the shapes of geometry.ValidateVertices; nil
// defaults to a single origin point with a warning.
func (ws *Workspace) CreatePoints(name string, vertices any) (*geometry.Points, error) {
	p, err := geometry.NewPoints(name, vertices, ws.objectOptions()...)
	if err != nil {
		return nil, err
	}
	if err := ws.register(p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateCurve creates and registers a Curve object under the root.
func (ws *Workspace) CreateCurve(name string, vertices, cells any) (*geometry.Curve, error) {
	c, err := geometry.NewCurve(name, vertices, cells, ws.objectOptions()...)
	if err != nil {
		return nil, err
	}
	if err := ws.register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateSurface creates and registers a Surface object under the root.
func (ws *Workspace) CreateSurface(name string, vertices, cells any) (*geometry.Surface, error) {
	s, err := geometry.NewSurface(name, vertices, cells, ws.objectOptions()...)
	if err != nil {
		return nil, err
	}
	if err := ws.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSurvey creates and registers an EM survey object under the
// root.
func (ws *Workspace) CreateSurvey(name, role string, vertices any) (*survey.Survey, error) {
	s, err := survey.New(name, role, vertices, ws.objectOptions()...)
	if err != nil {
		return nil, err
	}
	if err := ws.register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// CreateConcatenator creates and registers a concatenator group under
// the root.
func (ws *Workspace) CreateConcatenator(name string) (*concat.Concatenator, error) {
	c := concat.New(name, ws.store,
		concat.WithLogger(ws.log.Logger),
		concat.WithParent(ws.root.UID()))
	if err := ws.register(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (ws *Workspace) objectOptions() []geometry.ObjectOption {
	return []geometry.ObjectOption{
		geometry.WithStore(ws.store),
		geometry.WithLogger(ws.log.Logger),
		geometry.WithParent(ws.root.UID()),
	}
}

// GetEntity resolves uid to its live canonical instance without adding
// a reference. It never constructs a duplicate.
func (ws *Workspace) GetEntity(uid core.UID) (registry.Entity, bool) {
	return ws.reg.Resolve(uid)
}

// FindEntity resolves uid and returns an owning handle.
func (ws *Workspace) FindEntity(uid core.UID) (*registry.Handle, bool) {
	return ws.reg.Find(uid)
}

// FindOrCreateType returns the type singleton for uid, creating it on
// first use.
func (ws *Workspace) FindOrCreateType(uid core.UID, create func() *registry.EntityType) (*registry.TypeHandle, error) {
	return ws.reg.FindOrCreateType(uid, create)
}

// Detach drops the root group's pin on an entity. When no other handle
// survives, the entity is evicted from the registry; its persisted
// data is untouched.
func (ws *Workspace) Detach(uid core.UID) bool {
	return ws.root.release(uid)
}

// LoadObject resolves a persisted object that is not yet live: its
// type is read from the container, the matching variant is constructed
// with all arrays left unloaded, and the instance is registered and
// pinned under the root. A uid that is already live resolves to the
// existing instance.
func (ws *Workspace) LoadObject(uid core.UID) (registry.Entity, error) {
	if ent, ok := ws.reg.Resolve(uid); ok {
		return ent, nil
	}

	rawType, err := ws.store.ReadAttribute(uid, "TypeID")
	if err != nil {
		return nil, err
	}
	typeUID, err := core.ParseUID(string(rawType))
	if err != nil {
		return nil, fmt.Errorf("corrupt type identifier of %s: %w", uid, err)
	}

	name := ""
	if rawName, err := ws.store.ReadAttribute(uid, "Name"); err == nil {
		name = string(rawName)
	}

	var ent registry.Entity
	switch typeUID {
	case geometry.PointsTypeUID:
		p := geometry.LoadPoints(uid, name, ws.objectOptions()...)
		if err := p.LoadChildren(); err != nil {
			return nil, err
		}
		ent = p
	case geometry.CurveTypeUID:
		c := geometry.LoadCurve(uid, name, ws.objectOptions()...)
		if err := c.LoadChildren(); err != nil {
			return nil, err
		}
		ent = c
	case geometry.SurfaceTypeUID:
		s := geometry.LoadSurface(uid, name, ws.objectOptions()...)
		if err := s.LoadChildren(); err != nil {
			return nil, err
		}
		ent = s
	case survey.SurveyTypeUID:
		s, err := survey.Load(ws.store, uid, name, ws.objectOptions()...)
		if err != nil {
			return nil, err
		}
		ent = s
	case concat.ConcatenatorTypeUID:
		c, err := concat.Load(ws.store, uid, concat.WithLogger(ws.log.Logger))
		if err != nil {
			return nil, err
		}
		ent = c
	default:
		return nil, fmt.Errorf("object %s has unknown type %s: %w", uid, typeUID, core.ErrIdentity)
	}

	if err := ws.register(ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// Save persists every entity pinned under the root and flushes the
// container.
func (ws *Workspace) Save() error {
	if err := ws.store.WriteAttribute(core.NilUID, rootAttrName, []byte(ws.root.UID().String())); err != nil {
		return err
	}
	if err := ws.store.WriteAttribute(ws.root.UID(), "Name", []byte(ws.root.Name())); err != nil {
		return err
	}

	for _, uid := range ws.root.Children() {
		ent, ok := ws.reg.Resolve(uid)
		if !ok {
			continue
		}
		if err := ws.saveEntity(ent); err != nil {
			return err
		}
	}
	return ws.store.Flush()
}

func (ws *Workspace) saveEntity(ent registry.Entity) error {
	switch e := ent.(type) {
	case *geometry.Points:
		return e.Save(ws.store)
	case *geometry.Curve:
		return e.Save(ws.store)
	case *geometry.Surface:
		return e.Save(ws.store)
	case *survey.Survey:
		return e.Save(ws.store)
	case *concat.Concatenator:
		return e.Save()
	case *Group:
		err := ws.store.WriteAttribute(e.UID(), "Name", []byte(e.Name()))
		if err != nil {
			return err
		}
		return ws.store.WriteAttribute(e.UID(), "TypeID", []byte(e.TypeUID().String()))
	default:
		return fmt.Errorf("cannot persist entity %s of type %T: %w", ent.UID(), ent, core.ErrType)
	}
}

// Close saves, releases every pinned entity and closes the container.
func (ws *Workspace) Close() error {
	if err := ws.Save(); err != nil {
		return err
	}
	ws.root.releaseAll()
	ws.rootHandle.Release()
	return ws.store.Close()
}

// AddData is a convenience that attaches an in-memory value array to a
// geometric object.
func AddData(obj interface{ AddData(...*data.Data) }, name string, assoc core.Association, vals data.Values) *data.Data {
	d := data.NewData(name, assoc, vals)
	d.SetUID(core.NewUID())
	obj.AddData(d)
	return d
}
