// Package geostore is a persistent object store for geoscientific
// spatial data backed by a single hierarchical binary container.
//
// A Workspace tracks every live entity and entity type by identity,
// reclaims them deterministically when the last handle is released,
// and persists geometry (Points, Curve, Surface), per-element data
// arrays and property groups losslessly through a pluggable container
// backend.
//
// Many small sibling datasets, such as the interval logs of thousands
// of drillholes, are packed by the concat package into few large
// contiguous buffers plus an index, trading per-object storage
// overhead for bulk I/O efficiency.
//
// # Quick Start
//
//	ws, err := geostore.Open(container.NewMemory())
//	if err != nil { ... }
//	defer ws.Close()
//
//	pts, err := ws.CreatePoints("stations", [][]float64{{0, 0, 0}, {1, 0, 0}})
//	if err != nil { ... }
//
//	pts.AddData(data.NewData("elevation", core.AssociationVertex,
//		data.FloatValues{120.5, 119.8}))
//
//	if err := ws.Save(); err != nil { ... }
//
// The store is a single-process, single-writer model: one mutator at a
// time, readers are safe concurrently with each other.
package geostore
