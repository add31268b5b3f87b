package compat

import id "hemobank/pkg/domain"

// ABO lattice for whole blood and red cells: a recipient may receive from any
// donor whose antigens are a subset of its own. O- is the universal donor and
// AB+ the universal recipient once Rh is applied.
var aboDonorsFor = map[id.ABOGroup][]id.ABOGroup{
	id.ABOO:  {id.ABOO},
	id.ABOA:  {id.ABOA, id.ABOO},
	id.ABOB:  {id.ABOB, id.ABOO},
	id.ABOAB: {id.ABOAB, id.ABOA, id.ABOB, id.ABOO},
}

var aboRecipientsFor = map[id.ABOGroup][]id.ABOGroup{
	id.ABOO:  {id.ABOO, id.ABOA, id.ABOB, id.ABOAB},
	id.ABOA:  {id.ABOA, id.ABOAB},
	id.ABOB:  {id.ABOB, id.ABOAB},
	id.ABOAB: {id.ABOAB},
}

// Plasma inverts the red cell lattice on the ABO axis: AB is the universal
// plasma donor and O the universal plasma recipient.
var plasmaDonorsFor = map[id.ABOGroup][]id.ABOGroup{
	id.ABOO:  {id.ABOO, id.ABOA, id.ABOB, id.ABOAB},
	id.ABOA:  {id.ABOA, id.ABOAB},
	id.ABOB:  {id.ABOB, id.ABOAB},
	id.ABOAB: {id.ABOAB},
}

var plasmaRecipientsFor = map[id.ABOGroup][]id.ABOGroup{
	id.ABOO:  {id.ABOO},
	id.ABOA:  {id.ABOA, id.ABOO},
	id.ABOB:  {id.ABOB, id.ABOO},
	id.ABOAB: {id.ABOAB, id.ABOA, id.ABOB, id.ABOO},
}
