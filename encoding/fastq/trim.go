package fastq

// Trim cuts the read and quality lengths to at most n.
func (r *Read) Trim(n int) {
	if n >= len(r.Seq) {
		return
	}
	r.Seq = r.Seq[:n]
	r.Qual = r.Qual[:n]
}

// TrimLeft removes the first n bases (and quality values) from the read.
// Removing more bases than the read holds empties it.
func (r *Read) TrimLeft(n int) {
	if n >= len(r.Seq) {
		r.Seq = ""
		r.Qual = ""
		return
	}
	r.Seq = r.Seq[n:]
	r.Qual = r.Qual[n:]
}

// TrimRight removes the last n bases (and quality values) from the read.
func (r *Read) TrimRight(n int) {
	if n >= len(r.Seq) {
		r.Seq = ""
		r.Qual = ""
		return
	}
	r.Seq = r.Seq[:len(r.Seq)-n]
	r.Qual = r.Qual[:len(r.Qual)-n]
}
