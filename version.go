package mutect2parallel

// Version is the current version of mutect2parallel
const Version = "0.2.0"
