/*
Package macpepdb implements MaCPepDB-Go: a partitioned catalog of
tryptic (and in principle other enzymatic) peptides derived from a
protein sequence corpus, plus mass-tolerant modified-peptide search
over that catalog.

The module is organized as a set of small, focused packages rather
than one monolith:

  - mass: fixed-point (scale 1e9) mass arithmetic and the 22-residue
    counting alphabet every other package keys off of.
  - digest: enzymatic cleavage, missed-cleavage expansion, and
    ambiguous-residue (B/Z/J) disambiguation.
  - bio/uniprot: a streaming UniProtKB flat-file reader.
  - store (plus store/postgres and store/memstore): the persistence
    contract for proteins, peptides, associations, taxonomy data, and
    maintenance bookkeeping.
  - ingest: the digestion pipeline that turns a protein stream into
    stored proteins, peptides, and associations.
  - modification, combination, predicate, validator: the PTM model,
    the mass-tolerant modification-combination enumerator, the SQL
    predicate compiler it feeds, and the exact-match validator used
    to check the compiler's work.
  - metadata: the peptide metadata collector pipeline.
  - supervisor: shutdown coordination, statistics, and log
    multiplexing shared by both pipelines.
  - taxonomy: a loader for NCBI taxonomy dumps.
  - config: YAML configuration for the cmd/macpepdb CLI.

Browse the individual package docs for the details; cmd/macpepdb wires
them together into the database, precursor-range, statistics, and
taxonomy subcommands.
*/
package macpepdb
