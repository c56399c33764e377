package compiler

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/accel/asset/compiler/bvh"
	"github.com/olekukonko/tablewriter"
)

// Build a tabular representation of the BVH build statistics for every
// mesh tree and the scene tree.
func (acc *Accelerator) BuildReport() string {
	acc.mu.RLock()
	defer acc.mu.RUnlock()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Tree", "Prims", "Refs", "Nodes", "Leafs", "Height", "Splits (obj/spatial/median)", "Dup. ratio", "SAH cost", "Time"})

	var total bvh.Stats
	for meshIndex, tree := range acc.blas {
		table.Append(statsRow(acc.meshes[meshIndex].Name, tree, acc.opts.Mesh))
		total.Primitives += tree.Stats.Primitives
		total.References += tree.Stats.References
		total.Nodes += tree.Stats.Nodes
		total.BuildTime += tree.Stats.BuildTime
	}
	table.Append(statsRow("[scene]", acc.tlas, acc.opts.Scene))

	table.SetFooter([]string{
		"Meshes total",
		fmt.Sprint(total.Primitives),
		fmt.Sprint(total.References),
		fmt.Sprint(total.Nodes),
		" ", " ", " ",
		fmt.Sprintf("%.3f", total.DuplicationRatio()),
		" ",
		fmt.Sprintf("%d ms", total.BuildTime.Milliseconds()),
	})

	table.Render()
	return buf.String()
}

func statsRow(name string, tree *bvh.Tree, opts bvh.Options) []string {
	stats := tree.Stats
	return []string{
		name,
		fmt.Sprint(stats.Primitives),
		fmt.Sprint(stats.References),
		fmt.Sprint(stats.Nodes),
		fmt.Sprint(stats.Leaves),
		fmt.Sprint(stats.Height),
		fmt.Sprintf("%d/%d/%d", stats.ObjectSplits, stats.SpatialSplits, stats.MedianSplits),
		fmt.Sprintf("%.3f", stats.DuplicationRatio()),
		fmt.Sprintf("%.2f", tree.SAHCost(opts)),
		fmt.Sprintf("%d ms", stats.BuildTime.Milliseconds()),
	}
}
