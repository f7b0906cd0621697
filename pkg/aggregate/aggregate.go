package aggregate

import (
	"strings"

	"github.com/runningman84/truenas-status/pkg/models"
	"github.com/runningman84/truenas-status/pkg/parser"
	"github.com/runningman84/truenas-status/pkg/units"
	"k8s.io/klog/v2"
)

// Space holds the capacity figures of a pool as reported by a single source
type Space struct {
	Size      int64
	Allocated int64

	// Errors is set when the source also reports error counters
	Errors *ErrorCounts
}

// ErrorCounts holds the read, write and checksum error counters of a pool
type ErrorCounts struct {
	Read     int64
	Write    int64
	Checksum int64
}

// SpaceStrategy resolves the space of a pool from one data source
type SpaceStrategy struct {
	Name    string
	Resolve func(pool parser.PoolJSON) (Space, bool)
}

// DefaultSpaceStrategies are tried in order, the first one that applies wins
var DefaultSpaceStrategies = []SpaceStrategy{
	{Name: "topology", Resolve: TopologySpace},
	{Name: "pool", Resolve: PoolSpace},
}

// Aggregator joins pools, disks and datasets into pool records
type Aggregator struct {
	strategies []SpaceStrategy
}

// NewAggregator creates an aggregator using the given space strategies,
// or DefaultSpaceStrategies when none are given
func NewAggregator(strategies ...SpaceStrategy) *Aggregator {
	if len(strategies) == 0 {
		strategies = DefaultSpaceStrategies
	}
	return &Aggregator{strategies: strategies}
}

// Aggregate builds one record per pool with its disks and datasets attached.
// Input order is preserved for pools, disks and datasets.
func (a *Aggregator) Aggregate(pools []parser.PoolJSON, disks []models.DiskRecord, datasets []models.DatasetRecord) []models.PoolRecord {
	records := make([]models.PoolRecord, 0, len(pools))
	owners := make(map[string][]string)

	for _, pool := range pools {
		record := a.buildPool(pool)

		for _, disk := range disks {
			if disk.Pool == pool.Name {
				record.Disks = append(record.Disks, disk)
			}
		}

		for _, ds := range datasets {
			if OwnsDataset(pool.Name, ds.Name) {
				record.Datasets = append(record.Datasets, ds)
				owners[ds.Name] = append(owners[ds.Name], pool.Name)
			}
		}

		records = append(records, record)
	}

	// Pool names cannot contain "/" on the appliance, so this only fires on
	// unexpected input. The dataset stays attached to every matching pool.
	for name, poolNames := range owners {
		if len(poolNames) > 1 {
			klog.Warningf(" Dataset %s matches more than one pool: %s", name, strings.Join(poolNames, ", "))
		}
	}

	return records
}

func (a *Aggregator) buildPool(pool parser.PoolJSON) models.PoolRecord {
	record := models.PoolRecord{
		Name:           pool.Name,
		Status:         pool.Status,
		GUID:           parser.ToString(pool.GUID),
		ReadErrors:     counter(pool.ReadErrors),
		WriteErrors:    counter(pool.WriteErrors),
		ChecksumErrors: counter(pool.ChecksumErrors),
		Autotrim:       pool.Autotrim.String(),
		Disks:          []models.DiskRecord{},
		Datasets:       []models.DatasetRecord{},
	}

	if frag, ok := parser.ToFloat64(pool.Fragmentation); ok {
		record.FragmentationPercent = &frag
	}
	if healed, ok := parser.ToInt64(pool.SelfHealed); ok {
		record.SelfHealedBytes = &healed
	}

	if pool.Scan != nil {
		percentage, _ := parser.ToFloat64(pool.Scan.Percentage)
		record.Scan = models.ScanState{
			Function:   strings.ToUpper(pool.Scan.Function),
			State:      strings.ToUpper(pool.Scan.State),
			Percentage: units.Round(percentage, 2),
			Errors:     counter(pool.Scan.Errors),
		}
		if record.Scan.Function == "RESILVER" && record.Scan.State == "SCANNING" {
			record.Resilvering = models.ResilverState{
				Active:          true,
				ProgressPercent: record.Scan.Percentage,
			}
		}
	}

	for _, strategy := range a.strategies {
		space, ok := strategy.Resolve(pool)
		if !ok {
			continue
		}
		applySpace(&record, space)
		record.SpaceSource = strategy.Name
		break
	}

	return record
}

// applySpace derives available and used percent from a single source.
// A pool without a size keeps both derived fields unset.
func applySpace(record *models.PoolRecord, space Space) {
	size := space.Size
	allocated := space.Allocated
	record.SizeBytes = &size
	record.AllocatedBytes = &allocated

	if size > 0 {
		available := size - allocated
		used := units.Percent(allocated, size)
		record.AvailableBytes = &available
		record.UsedPercent = &used
	}

	if space.Errors != nil {
		record.ReadErrors = space.Errors.Read
		record.WriteErrors = space.Errors.Write
		record.ChecksumErrors = space.Errors.Checksum
	}
}

// TopologySpace sums the per-vdev statistics of the data vdevs. It applies
// only when every data vdev carries a stats block.
func TopologySpace(pool parser.PoolJSON) (Space, bool) {
	if pool.Topology == nil || len(pool.Topology.Data) == 0 {
		return Space{}, false
	}

	var space Space
	var errs ErrorCounts
	hasErrors := false
	for _, vdev := range pool.Topology.Data {
		if vdev.Stats == nil {
			return Space{}, false
		}
		size, _ := parser.ToInt64(vdev.Stats.Size)
		allocated, _ := parser.ToInt64(vdev.Stats.Allocated)
		space.Size += size
		space.Allocated += allocated

		if v, ok := parser.ToInt64(vdev.Stats.ReadErrors); ok {
			errs.Read += v
			hasErrors = true
		}
		if v, ok := parser.ToInt64(vdev.Stats.WriteErrors); ok {
			errs.Write += v
			hasErrors = true
		}
		if v, ok := parser.ToInt64(vdev.Stats.ChecksumErrors); ok {
			errs.Checksum += v
			hasErrors = true
		}
	}

	if hasErrors {
		space.Errors = &errs
	}
	return space, true
}

// PoolSpace uses the pool level size together with free or allocated
func PoolSpace(pool parser.PoolJSON) (Space, bool) {
	size, ok := parser.ToInt64(pool.Size)
	if !ok {
		return Space{}, false
	}
	if free, ok := parser.ToInt64(pool.Free); ok {
		return Space{Size: size, Allocated: size - free}, true
	}
	if allocated, ok := parser.ToInt64(pool.Allocated); ok {
		return Space{Size: size, Allocated: allocated}, true
	}
	return Space{}, false
}

// OwnsDataset reports whether a dataset belongs to a pool: the name equals the
// pool name or starts with the pool name followed by "/"
func OwnsDataset(poolName, datasetName string) bool {
	if poolName == "" {
		return false
	}
	return datasetName == poolName || strings.HasPrefix(datasetName, poolName+"/")
}

// counter converts an error counter, absent values count as no errors
func counter(v interface{}) int64 {
	n, ok := parser.ToInt64(v)
	if !ok || n < 0 {
		return 0
	}
	return n
}
