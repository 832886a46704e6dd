package classifier

// Keyword sets that force a search decision. Order matters: the reason
// string lists the first three matches in declaration order, and entries
// repeated across sets are kept so a repeated term can be reported twice.
var (
	physicsKeywords = []string{
		"pendulum", "oscillation", "wave", "frequency", "amplitude", "period",
		"momentum", "velocity", "acceleration", "force", "gravity", "friction",
		"energy", "kinetic", "potential", "thermodynamics", "heat", "temperature",
		"pressure", "volume", "gas", "molecule", "atom", "particle", "electron",
		"photon", "quantum", "relativity", "electromagnetic", "magnetic", "electric",
		"circuit", "resistance", "voltage", "current", "capacitor", "inductor",
		"lens", "mirror", "optics", "refraction", "reflection", "diffraction",
		"formula", "equation", "physics", "mechanics", "dynamics", "statics",
		"sinusoidal", "harmonic", "spring", "mass", "weight", "newton", "joule",
		"watt", "hertz", "wavelength", "spectrum", "radiation", "nuclear",
	}

	chemistryKeywords = []string{
		"molecule", "atom", "chemical", "reaction", "compound", "element",
		"periodic", "electron", "proton", "neutron", "ion", "bond", "covalent",
		"ionic", "hydrogen", "oxygen", "carbon", "nitrogen", "sulfur",
		"acid", "base", "ph", "oxidation", "reduction", "catalyst",
		"organic", "inorganic", "polymer", "protein", "enzyme", "dna", "rna",
		"chemistry", "molecular", "crystal", "solution", "concentration",
		"molar", "molarity", "titration", "equilibrium",
	}

	biologyKeywords = []string{
		"cell", "dna", "rna", "gene", "chromosome", "mitosis", "meiosis",
		"protein", "enzyme", "bacteria", "virus", "organism", "species",
		"evolution", "natural selection", "genetics", "heredity", "mutation",
		"photosynthesis", "respiration", "metabolism", "ecosystem", "biome",
		"anatomy", "physiology", "organ", "tissue", "neuron", "synapse",
		"biology", "biological", "microscope", "specimen", "bacteria",
		"membrane", "nucleus", "cytoplasm", "mitochondria", "chloroplast",
	}

	mathKeywords = []string{
		"graph", "chart", "diagram", "formula", "equation", "statistics",
		"percentage", "ratio", "proportion", "function", "derivative", "integral",
		"algebra", "geometry", "trigonometry", "calculus", "probability",
		"distribution", "mean", "median", "deviation", "variance", "correlation",
		"pie chart", "bar chart", "histogram", "scatter", "plot", "axis",
		"coordinate", "vector", "matrix", "theorem", "proof", "calculation",
	}

	educationalKeywords = []string{
		"diagram", "schematic", "illustration", "infographic", "model",
		"educational", "classroom", "blackboard", "whiteboard", "textbook",
		"scientific", "technical", "labeled", "annotation", "scheme",
		"structure", "system", "process", "cycle", "flow", "mechanism",
	}
)

// searchKeywords is the concatenation of every set in declaration order.
var searchKeywords = concat(physicsKeywords, chemistryKeywords, biologyKeywords, mathKeywords, educationalKeywords)

func concat(sets ...[]string) []string {
	var n int
	for _, s := range sets {
		n += len(s)
	}
	out := make([]string, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}
