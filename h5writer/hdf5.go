package h5writer

import (
	"fmt"

	"gonum.org/v1/hdf5"
)

// Chunk length of the growing dimension
const CHUNK_ROWS = 32768

// table is an extendable dataset with the number of rows written so far.
type table struct {
	name    string
	dataset *hdf5.Dataset
	rows    uint
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, fmt.Errorf("error creating file %q: %w", fname, err)
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

func createDataset(group *hdf5.Group, name string, dtype *hdf5.Datatype, dims []uint, maxDims []uint,
	chunks []uint, compression int) (*table, error) {
	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if err := plist.SetDeflate(compression); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return &table{name: name, dataset: dset}, nil
}

// createTable creates a one dimensional extendable table of the compound
// type of datatype.
func createTable(group *hdf5.Group, name string, datatype interface{}, compression int) (*table, error) {
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return createDataset(group, name, dtype, []uint{0}, []uint{uint(unlimitedDims)},
		[]uint{CHUNK_ROWS}, compression)
}

// create2dArray creates an int32 array with a fixed number of columns
// that grows by rows.
func create2dArray(group *hdf5.Group, name string, nColumns int, compression int) (*table, error) {
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	chunks := []uint{1, uint(nColumns)}
	return createDataset(group, name, hdf5.T_NATIVE_INT32, []uint{0, uint(nColumns)},
		[]uint{uint(unlimitedDims), uint(nColumns)}, chunks, compression)
}

func writeEntryToTable[T any](t *table, data T) error {
	array := []T{data}
	return writeArrayToTable(t, &array)
}

func writeArrayToTable[T any](t *table, data *[]T) error {
	length := uint(len(*data))
	if length == 0 {
		return nil
	}
	return t.append(data, []uint{length}, []uint{t.rows}, length)
}

// write2dArray appends rows of nColumns values stored row after row.
func write2dArray(t *table, data *[]int32, nColumns int) error {
	if len(*data) == 0 {
		return nil
	}
	if len(*data)%nColumns != 0 {
		return &ErrWriteTable{TableName: t.name, Err: fmt.Errorf("%d values is not a multiple of %d columns", len(*data), nColumns)}
	}
	nRows := uint(len(*data) / nColumns)
	return t.append(data, []uint{nRows, uint(nColumns)}, []uint{t.rows, 0}, nRows)
}

func (t *table) append(data interface{}, count []uint, start []uint, nRows uint) error {
	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return &ErrWriteTable{TableName: t.name, Err: err}
	}
	defer dataspace.Close()

	newsize := append([]uint{t.rows + nRows}, count[1:]...)
	if err := t.dataset.Resize(newsize); err != nil {
		return &ErrWriteTable{TableName: t.name, Err: err}
	}
	filespace := t.dataset.Space()
	defer filespace.Close()

	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return &ErrWriteTable{TableName: t.name, Err: err}
	}
	if err := t.dataset.WriteSubset(data, dataspace, filespace); err != nil {
		return &ErrWriteTable{TableName: t.name, Err: err}
	}
	t.rows += nRows
	return nil
}

func (t *table) Close() error {
	if t == nil {
		return nil
	}
	return t.dataset.Close()
}
