package atlasseq

import (
	"bytes"
	"context"

	"github.com/atlas-seq/atlas/encoding/bed"
	"github.com/atlas-seq/atlas/exttool"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Annotate splits insertion calls into known and novel sets by intersecting
// them with a reference annotation of known element positions, via
//
//	bedtools intersect -u -a calls.bed -b known.bed
//
// Calls overlapping an annotated element are known; the rest are novel.
func Annotate(ctx context.Context, bedtools exttool.Tool, callsPath, knownTEPath string) (known, novel []bed.Entry, err error) {
	out, err := bedtools.Output(ctx, "intersect", "-u", "-a", callsPath, "-b", knownTEPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "atlasseq: intersecting %s with %s", callsPath, knownTEPath)
	}
	known, err = bed.ReadAll(bytes.NewReader(out))
	if err != nil {
		return nil, nil, err
	}
	all, err := bed.ReadAllFromPath(callsPath)
	if err != nil {
		return nil, nil, err
	}
	knownNames := map[string]bool{}
	for i := range known {
		knownNames[known[i].Name] = true
	}
	for i := range all {
		if !knownNames[all[i].Name] {
			novel = append(novel, all[i])
		}
	}
	log.Printf("annotate: %s: %d known, %d novel", callsPath, len(known), len(novel))
	return known, novel, nil
}
