package signaling

// wordLists are the pools session keys are drawn from. Every pool needs a
// distinct first word and enough entries to keep live keys unlikely to clash.
var wordLists = [][]string{moods, colors, creatures, snacks, places, things}

var moods = []string{
	"sleepy", "chirpy", "curious", "mellow", "giddy", "brave", "shy", "witty", "breezy", "cozy",
	"dreamy", "fuzzy", "jolly", "lucky", "plucky", "quiet", "snappy", "sunny", "zesty", "bouncy",
	"calm", "eager", "fancy", "gentle", "humble", "nimble", "proud", "silly", "swift", "tidy",
}

var colors = []string{
	"amber", "azure", "coral", "crimson", "cyan", "ebony", "emerald", "golden", "indigo", "ivory",
	"jade", "lilac", "magenta", "maroon", "mint", "navy", "ochre", "olive", "peach", "plum",
	"rose", "ruby", "sage", "scarlet", "silver", "teal", "topaz", "umber", "violet", "saffron",
}

var creatures = []string{
	"otter", "lynx", "heron", "gecko", "badger", "walrus", "puffin", "marmot", "ibis", "newt",
	"wombat", "alpaca", "bison", "cobra", "dingo", "egret", "ferret", "gibbon", "hyena", "impala",
	"jackal", "kiwi", "lemur", "magpie", "narwhal", "ocelot", "panda", "quokka", "raven", "tapir",
}

var snacks = []string{
	"waffle", "pretzel", "mochi", "nacho", "bagel", "churro", "donut", "scone", "truffle", "taco",
	"muffin", "crepe", "dumpling", "falafel", "gelato", "hummus", "kebab", "latte", "macaron", "nougat",
	"pickle", "ramen", "samosa", "toffee", "biscuit", "brownie", "cookie", "popcorn", "sorbet", "tofu",
}

var places = []string{
	"harbor", "meadow", "canyon", "lagoon", "summit", "valley", "island", "forest", "desert", "glacier",
	"bayou", "cavern", "delta", "fjord", "grove", "hollow", "jungle", "marsh", "oasis", "prairie",
	"reef", "savanna", "tundra", "volcano", "atoll", "bluff", "cove", "dune", "mesa", "steppe",
}

var things = []string{
	"lantern", "compass", "kite", "marble", "pebble", "ribbon", "rocket", "teacup", "whistle", "yoyo",
	"anchor", "balloon", "candle", "drum", "feather", "guitar", "hammock", "igloo", "jigsaw", "kazoo",
	"ladder", "mitten", "notebook", "origami", "paddle", "quill", "saddle", "trumpet", "umbrella", "violin",
}
