package gjkr

import (
	logging "github.com/ipfs/go-log/v2"
)

// logger follows the teacher's `var logger = log.Logger("<component>")`
// idiom (see pkg/chain/ethereum/utility.go's logger.Infof calls), here
// bound to the actual github.com/ipfs/go-log/v2 package the teacher's
// retrieval slice left implicit.
var logger = logging.Logger("gjkr")
