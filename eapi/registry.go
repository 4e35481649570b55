package eapi

// init builds the EAPI chain in registration order, each diff relative to
// the previous EAPI's already-accumulated tables. This mirrors the way
// each official EAPI in the real ebuild language is defined as a diff
// against its predecessor rather than restated from scratch.
func init() {
	register("0", func(e *EAPI) {
		e.features[Blockers] = true
		e.features[RdependDefault] = true
		e.mandatoryKeys = setOf("DESCRIPTION", "SLOT")
		e.optionalKeys = setOf(
			"IUSE", "KEYWORDS", "LICENSE", "HOMEPAGE", "SRC_URI",
			"RESTRICT", "PROPERTIES", "DEPEND", "RDEPEND", "PDEPEND",
		)
		e.incrementalKeys = setOf("IUSE", "RESTRICT", "PROPERTIES")
		e.depKeys = setOf("DEPEND", "RDEPEND", "PDEPEND")
		e.archiveExts = []string{
			".tar", ".tar.gz", ".tgz", ".tar.Z", ".tar.bz2", ".tbz2",
			".zip", ".ZIP", ".jar", ".gz", ".Z", ".z", ".bz2",
			".rar", ".7z", ".7Z", ".lha", ".LHa", ".LHA", ".lzh",
		}
		e.phases[OpBuild] = []Phase{
			PhaseSetup, PhaseUnpack, PhaseConfigure, PhaseCompile, PhaseTest, PhaseInstall,
		}
		e.phases[OpInstall] = []Phase{PhasePreinst, PhasePostinst}
		e.phases[OpUninstall] = []Phase{PhasePrerm, PhasePostrm}
		e.phases[OpConfig] = []Phase{PhaseConfig}
		e.phases[OpInfo] = []Phase{PhaseInfo}
		e.envVars = map[string][]string{
			"P": {"all"}, "PV": {"all"}, "PN": {"all"}, "PF": {"all"}, "PR": {"all"},
			"CATEGORY": {"all"}, "A": {"src_unpack", "src_compile"},
			"S": {"src_*"}, "D": {"src_install"}, "T": {"all"}, "WORKDIR": {"all"},
		}
		e.econf = map[string]EconfOption{
			"--prefix":  {Markers: []string{"--prefix"}, Default: "/usr"},
			"--libdir":  {Markers: []string{"--libdir"}, Default: "/usr/lib"},
			"--sysconfdir": {Markers: []string{"--sysconfdir"}, Default: "/etc"},
		}
	})

	register("1", func(e *EAPI) {
		e.features[SlotDeps] = true
	})

	register("2", func(e *EAPI) {
		e.features[UseDeps] = true
		e.features[SrcUriRenames] = true
		e.features[DomanLangDetect] = true
		e.phases[OpBuild] = []Phase{
			PhaseSetup, PhaseUnpack, PhasePrepare, PhaseConfigure, PhaseCompile, PhaseTest, PhaseInstall,
		}
		e.econf["--docdir"] = EconfOption{Markers: []string{"--docdir"}, Default: "/usr/share/doc/${PF}"}
		e.econf["--htmldir"] = EconfOption{Markers: []string{"--htmldir"}, Default: "/usr/share/doc/${PF}/html"}
	})

	register("3", func(e *EAPI) {
		e.features[DomanLangOverride] = true
	})

	register("4", func(e *EAPI) {
		e.features[IuseDefaults] = true
		e.features[UseDepDefaults] = true
		e.features[RequiredUse] = true
		e.features[DodocRecursive] = true
		e.features[NewSupportsStdin] = true
		e.optionalKeys["REQUIRED_USE"] = true
		e.phases[OpInstall] = []Phase{PhasePreinst, PhasePostinst}
		e.phases[OpUninstall] = []Phase{PhasePrerm, PhasePostrm}
		e.phases[OpBuild] = []Phase{
			PhaseSetup, PhaseUnpack, PhasePrepare, PhaseConfigure, PhaseCompile, PhaseTest, PhaseInstall,
		}
	})

	register("5", func(e *EAPI) {
		e.features[Subslots] = true
		e.features[SlotOps] = true
		e.features[ParallelTests] = true
		e.features[RequiredUseOneOf] = true
	})

	register("6", func(e *EAPI) {
		e.features[NonfatalDie] = true
		e.features[UsevTwoArgs] = true
		e.phases[OpBuild] = []Phase{
			PhaseSetup, PhaseUnpack, PhasePrepare, PhaseConfigure, PhaseCompile, PhaseTest, PhaseInstall,
		}
		e.econf["--htmldir"] = EconfOption{Markers: []string{"--htmldir"}, Default: "/usr/share/doc/${PF}/html"}
	})

	register("7", func(e *EAPI) {
		e.features[DosymRelative] = true
		e.envVars["SYSROOT"] = []string{"src_*"}
		e.envVars["ESYSROOT"] = []string{"src_*"}
		e.envVars["BROOT"] = []string{"src_*"}
		e.phases[OpBuild] = append(e.phases[OpBuild], PhasePretend)
		e.phases[OpPretend] = []Phase{PhasePretend}
	})

	register("8", func(e *EAPI) {
		e.features[GlobalFailglob] = true
		e.features[ConsistentFileOpts] = true
		e.features[UnpackExtendedPath] = true
		e.depKeys["BDEPEND"] = true
		e.optionalKeys["BDEPEND"] = true
		e.incrementalKeys["BDEPEND"] = true
	})

	register("pkgcraft", func(e *EAPI) {
		e.features[SrcUriUnrestrict] = true
		e.features[UnpackCaseInsensitive] = true
		e.features[RepoIds] = true
		e.features[QueryDeps] = true
		e.features[QueryHostRoot] = true
		e.archiveCI = true
	})
}

func setOf(keys ...string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}
