package geometry

import (
	"fmt"
	"sync"

	"github.com/hupe1980/geostore/container"
	"github.com/hupe1980/geostore/core"
	"github.com/hupe1980/geostore/data"
)

// cellArrayName is the container array name cells persist under.
const cellArrayName = "Cells"

// CellObject is a geometric object whose vertices are connected by
// fixed-arity index tuples (segments, triangles). Cell indices are
// persisted as 32-bit signed integers.
type CellObject struct {
	Points
	arity int

	cmu    sync.Mutex
	cells  [][]int32
	cstate data.CacheState
}

// Arity returns the number of vertex indices per cell.
func (c *CellObject) Arity() int { return c.arity }

// Cells returns the index array, fetched lazily from the container on
// first access.
func (c *CellObject) Cells() ([][]int32, error) {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	return c.cellsLocked()
}

func (c *CellObject) cellsLocked() ([][]int32, error) {
	if c.cstate == data.CacheLoaded {
		return c.cells, nil
	}
	if c.store == nil {
		return nil, fmt.Errorf("object %q has no cells and no container: %w",
			c.name, core.ErrNotFound)
	}
	raw, err := c.store.ReadArray(c.uid, cellArrayName)
	if err != nil {
		return nil, err
	}
	cells, err := DecodeCells(raw, c.arity)
	if err != nil {
		return nil, err
	}
	c.cells = cells
	c.cstate = data.CacheLoaded
	return cells, nil
}

// NCells returns the cell count.
func (c *CellObject) NCells() (int, error) {
	cells, err := c.Cells()
	if err != nil {
		return 0, err
	}
	return len(cells), nil
}

func (c *CellObject) setCells(cells [][]int32) {
	c.cmu.Lock()
	defer c.cmu.Unlock()
	c.cells = cells
	c.cstate = data.CacheLoaded
}

// RemoveCells removes the given cell rows and the matching rows of
// every cell-associated data child. Out-of-range indices fail with
// core.ErrValue before any state changes; an empty cell set is a
// warning no-op.
func (c *CellObject) RemoveCells(indices []int) error {
	cells, err := c.Cells()
	if err != nil {
		return err
	}
	if len(cells) == 0 {
		c.warn("no cells to be removed")
		return nil
	}
	if err := checkIndexRange(indices, len(cells), "cells"); err != nil {
		return err
	}

	if err := c.preloadChildren(); err != nil {
		return err
	}
	if err := c.checkChildCardinality(core.AssociationCell, len(cells)); err != nil {
		return err
	}

	keep := keepMask(len(cells), indices)
	next := make([][]int32, 0, len(cells))
	for i, cell := range cells {
		if keep[i] {
			next = append(next, cell)
		}
	}

	if err := c.removeChildrenRows(indices, core.AssociationCell); err != nil {
		return err
	}
	c.setCells(next)
	return nil
}

// RemoveVertices removes the given vertex rows, drops every cell that
// references a removed vertex, rewrites surviving cell indices into the
// new contiguous numbering and cascades the removal into vertex- and
// cell-associated data children. The cascade validates everything
// before mutating, so a failure leaves the object in its pre-call
// state.
func (c *CellObject) RemoveVertices(indices []int) error {
	verts, err := c.Vertices()
	if err != nil {
		return err
	}
	if len(verts) == 0 {
		c.warn("no vertices to be removed")
		return nil
	}
	if err := checkIndexRange(indices, len(verts), "vertices"); err != nil {
		return err
	}

	cells, err := c.Cells()
	if err != nil {
		return err
	}

	if err := c.preloadChildren(); err != nil {
		return err
	}
	if err := c.checkChildCardinality(core.AssociationVertex, len(verts)); err != nil {
		return err
	}
	if err := c.checkChildCardinality(core.AssociationCell, len(cells)); err != nil {
		return err
	}

	vertexKeep := keepMask(len(verts), indices)

	// Old index -> new contiguous index for surviving vertices.
	remap := make([]int32, len(verts))
	next := int32(0)
	for i, kept := range vertexKeep {
		if kept {
			remap[i] = next
			next++
		}
	}

	var removedCells []int
	for i, cell := range cells {
		for _, idx := range cell {
			if !vertexKeep[idx] {
				removedCells = append(removedCells, i)
				break
			}
		}
	}

	if err := c.RemoveCells(removedCells); err != nil {
		return err
	}

	surviving, err := c.Cells()
	if err != nil {
		return err
	}
	rewritten := make([][]int32, len(surviving))
	for i, cell := range surviving {
		row := make([]int32, len(cell))
		for j, idx := range cell {
			row[j] = remap[idx]
		}
		rewritten[i] = row
	}
	c.setCells(rewritten)

	newVerts := make([]Vertex, 0, len(verts))
	for i, v := range verts {
		if vertexKeep[i] {
			newVerts = append(newVerts, v)
		}
	}
	if err := c.removeChildrenRows(indices, core.AssociationVertex); err != nil {
		return err
	}
	c.setVertices(newVerts)
	return nil
}

// copyGeometry projects vertices and cells through the copy masks. It
// returns the projected arrays and the per-association boolean masks
// for the children copy pass.
func (c *CellObject) copyGeometry(opts CopyOptions) ([]Vertex, [][]int32, []bool, []bool, error) {
	verts, err := c.Vertices()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cells, err := c.Cells()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if opts.Mask == nil {
		newVerts := applyVertexMask(verts, nil)
		newCells := make([][]int32, len(cells))
		for i, cell := range cells {
			newCells[i] = append([]int32(nil), cell...)
		}
		return newVerts, newCells, nil, nil, nil
	}

	vertexKeep := maskToBools(opts.Mask, len(verts))

	var cellKeep []bool
	if opts.CellMask != nil {
		cellKeep = maskToBools(opts.CellMask, len(cells))
	} else {
		// A cell survives when all of its corners survive the mask.
		cellKeep = make([]bool, len(cells))
		for i, cell := range cells {
			kept := true
			for _, idx := range cell {
				if int(idx) >= len(vertexKeep) || !vertexKeep[idx] {
					kept = false
					break
				}
			}
			cellKeep[i] = kept
		}
	}

	remap := make([]int32, len(verts))
	next := int32(0)
	for i, kept := range vertexKeep {
		if kept {
			remap[i] = next
			next++
		}
	}

	newVerts := applyVertexMask(verts, vertexKeep)
	var newCells [][]int32
	for i, cell := range cells {
		if i >= len(cellKeep) || !cellKeep[i] {
			continue
		}
		row := make([]int32, len(cell))
		for j, idx := range cell {
			row[j] = remap[idx]
		}
		newCells = append(newCells, row)
	}
	return newVerts, newCells, vertexKeep, cellKeep, nil
}

// Save writes the object, its cells and its children to the store.
func (c *CellObject) Save(store container.Store) error {
	cells, err := c.Cells()
	if err != nil {
		return err
	}
	if err := store.WriteArray(c.uid, cellArrayName, EncodeCells(cells)); err != nil {
		return err
	}
	return c.Points.Save(store)
}
