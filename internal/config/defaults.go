package config

const (
	defaultProteinDir        = "./proteins"
	defaultMetadataDir       = "./ec_split_dataset_csv"
	defaultCategoryDir       = "./ec_databases"
	defaultDatabaseDir       = "./ec_create_db"
	defaultAlignmentDir      = "./alignments"
	defaultFastaDir          = "./ec_split_dataset_fasta"
	defaultDiamondDBDir      = "./ec_split_dataset_dmnd"
	defaultDiamondOutputDir  = "./ec_split_dataset_result"
	defaultLogDir            = "./logs"
	defaultFilePrefix        = "AF-"
	defaultFileMarker        = "-F1-model_v4"
	defaultMetadataGlob      = "EC_*.csv"
	defaultCategoryPattern   = `^[\w-]+\.[\w-]+\.[\w-]+\.[\w-]+$`
	defaultMaterializeMode   = "symlink"
	defaultFoldseekBinary    = "foldseek"
	defaultFoldseekThreads   = 8
	defaultFoldseekMaxAccept = 2
	defaultFoldseekFormat    = "query,target,alntmscore,qtmscore,ttmscore,lddt,prob,fident,alnlen,evalue"
	defaultDiamondBinary     = "diamond"
	defaultDiamondMode       = "blastp"
	defaultDiamondThreads    = 4
	defaultDiamondFormat     = "6 qseqid sseqid pident"
	defaultSequenceColumn    = 2
	defaultConcurrency       = 8
	defaultStderrLimit       = 500
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

var (
	defaultExtensions = []string{".pdb", ".pdb.gz"}
	defaultPreferred  = []string{".pdb", ".pdb.gz"}

	defaultCreateDBArgs = []string{"{mode}", "{query_path}", "{database_path}", "--threads", "{threads}"}
	defaultSearchArgs   = []string{
		"{mode}", "{database_path}", "{database_path}", "{output_path}", "{tmp_dir}",
		"--threads", "{threads}",
		"--max-accept", "{max_accept}",
		"--format-output", "{format_spec}",
	}
	defaultDiamondArgs = []string{
		"{mode}", "-k", "{max_accept}", "--threads", "{threads}",
		"-d", "{database_path}",
		"-q", "{query_path}",
		"--sensitive",
		"--outfmt", "{format_spec}",
		"--out", "{output_path}",
	}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProteinDirs:      []string{defaultProteinDir},
			MetadataDir:      defaultMetadataDir,
			CategoryDir:      defaultCategoryDir,
			DatabaseDir:      defaultDatabaseDir,
			AlignmentDir:     defaultAlignmentDir,
			FastaDir:         defaultFastaDir,
			DiamondDBDir:     defaultDiamondDBDir,
			DiamondOutputDir: defaultDiamondOutputDir,
			LogDir:           defaultLogDir,
		},
		Index: Index{
			Prefix:              defaultFilePrefix,
			Marker:              defaultFileMarker,
			Extensions:          append([]string(nil), defaultExtensions...),
			PreferredExtensions: append([]string(nil), defaultPreferred...),
			MetadataGlob:        defaultMetadataGlob,
			CategoryPattern:     defaultCategoryPattern,
		},
		Materialize: Materialize{
			Mode: defaultMaterializeMode,
		},
		Foldseek: Foldseek{
			Binary:          defaultFoldseekBinary,
			CreateDBThreads: 1,
			SearchThreads:   defaultFoldseekThreads,
			MaxAccept:       defaultFoldseekMaxAccept,
			FormatOutput:    defaultFoldseekFormat,
			CreateDBArgs:    append([]string(nil), defaultCreateDBArgs...),
			SearchArgs:      append([]string(nil), defaultSearchArgs...),
		},
		Diamond: Diamond{
			Binary:         defaultDiamondBinary,
			Mode:           defaultDiamondMode,
			Threads:        defaultDiamondThreads,
			MaxTargets:     2,
			FormatSpec:     defaultDiamondFormat,
			SequenceColumn: defaultSequenceColumn,
			Args:           append([]string(nil), defaultDiamondArgs...),
		},
		Workers: Workers{
			Concurrency: defaultConcurrency,
			StderrLimit: defaultStderrLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
