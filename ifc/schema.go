package ifc

import (
	"strconv"
	"strings"
)

type entityDef struct {
	parent string
	attrs  []string
}

// entities maps IFC4 entity names to their supertype and own explicit
// attributes. Only types that commonly carry semantic data are listed;
// everything else falls back to positional names.
var entities = map[string]entityDef{
	// Kernel
	"IFCROOT":             {"", []string{"GlobalId", "OwnerHistory", "Name", "Description"}},
	"IFCOBJECTDEFINITION": {"IFCROOT", nil},
	"IFCOBJECT":           {"IFCOBJECTDEFINITION", []string{"ObjectType"}},
	"IFCCONTEXT":          {"IFCOBJECTDEFINITION", []string{"ObjectType", "LongName", "Phase", "RepresentationContexts", "UnitsInContext"}},
	"IFCPROJECT":          {"IFCCONTEXT", nil},
	"IFCPRODUCT":          {"IFCOBJECT", []string{"ObjectPlacement", "Representation"}},
	"IFCTYPEOBJECT":       {"IFCOBJECTDEFINITION", []string{"ApplicableOccurrence", "HasPropertySets"}},
	"IFCTYPEPRODUCT":      {"IFCTYPEOBJECT", []string{"RepresentationMaps", "Tag"}},
	"IFCELEMENTTYPE":      {"IFCTYPEPRODUCT", []string{"ElementType"}},
	// Spatial structure
	"IFCSPATIALELEMENT":          {"IFCPRODUCT", []string{"LongName"}},
	"IFCSPATIALSTRUCTUREELEMENT": {"IFCSPATIALELEMENT", []string{"CompositionType"}},
	"IFCSITE":                    {"IFCSPATIALSTRUCTUREELEMENT", []string{"RefLatitude", "RefLongitude", "RefElevation", "LandTitleNumber", "SiteAddress"}},
	"IFCBUILDING":                {"IFCSPATIALSTRUCTUREELEMENT", []string{"ElevationOfRefHeight", "ElevationOfTerrain", "BuildingAddress"}},
	"IFCBUILDINGSTOREY":          {"IFCSPATIALSTRUCTUREELEMENT", []string{"Elevation"}},
	"IFCSPACE":                   {"IFCSPATIALSTRUCTUREELEMENT", []string{"PredefinedType", "ElevationWithFlooring"}},
	// Elements
	"IFCELEMENT":                   {"IFCPRODUCT", []string{"Tag"}},
	"IFCBUILDINGELEMENT":           {"IFCELEMENT", nil},
	"IFCWALL":                      {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCWALLSTANDARDCASE":          {"IFCWALL", nil},
	"IFCCURTAINWALL":               {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCSLAB":                      {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCROOF":                      {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCBEAM":                      {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCCOLUMN":                    {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCMEMBER":                    {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCPLATE":                     {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCFOOTING":                   {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCCOVERING":                  {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCRAILING":                   {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCSTAIR":                     {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCSTAIRFLIGHT":               {"IFCBUILDINGELEMENT", []string{"NumberOfRisers", "NumberOfTreads", "RiserHeight", "TreadLength", "PredefinedType"}},
	"IFCRAMP":                      {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCDOOR":                      {"IFCBUILDINGELEMENT", []string{"OverallHeight", "OverallWidth", "PredefinedType", "OperationType", "UserDefinedOperationType"}},
	"IFCWINDOW":                    {"IFCBUILDINGELEMENT", []string{"OverallHeight", "OverallWidth", "PredefinedType", "PartitioningType", "UserDefinedPartitioningType"}},
	"IFCBUILDINGELEMENTPROXY":      {"IFCBUILDINGELEMENT", []string{"PredefinedType"}},
	"IFCFURNISHINGELEMENT":         {"IFCELEMENT", nil},
	"IFCFURNITURE":                 {"IFCFURNISHINGELEMENT", []string{"PredefinedType"}},
	"IFCDISTRIBUTIONELEMENT":       {"IFCELEMENT", nil},
	"IFCDISTRIBUTIONFLOWELEMENT":   {"IFCDISTRIBUTIONELEMENT", nil},
	"IFCFLOWSEGMENT":               {"IFCDISTRIBUTIONFLOWELEMENT", nil},
	"IFCFLOWFITTING":               {"IFCDISTRIBUTIONFLOWELEMENT", nil},
	"IFCFLOWTERMINAL":              {"IFCDISTRIBUTIONFLOWELEMENT", nil},
	"IFCFEATUREELEMENT":            {"IFCELEMENT", nil},
	"IFCFEATUREELEMENTSUBTRACTION": {"IFCFEATUREELEMENT", nil},
	"IFCOPENINGELEMENT":            {"IFCFEATUREELEMENTSUBTRACTION", []string{"PredefinedType"}},
	// Types
	"IFCBUILDINGELEMENTTYPE": {"IFCELEMENTTYPE", nil},
	"IFCWALLTYPE":            {"IFCBUILDINGELEMENTTYPE", []string{"PredefinedType"}},
	"IFCSLABTYPE":            {"IFCBUILDINGELEMENTTYPE", []string{"PredefinedType"}},
	"IFCBEAMTYPE":            {"IFCBUILDINGELEMENTTYPE", []string{"PredefinedType"}},
	"IFCCOLUMNTYPE":          {"IFCBUILDINGELEMENTTYPE", []string{"PredefinedType"}},
	"IFCDOORTYPE":            {"IFCBUILDINGELEMENTTYPE", []string{"PredefinedType", "OperationType", "ParameterTakesPrecedence", "UserDefinedOperationType"}},
	"IFCWINDOWTYPE":          {"IFCBUILDINGELEMENTTYPE", []string{"PredefinedType", "PartitioningType", "ParameterTakesPrecedence", "UserDefinedPartitioningType"}},
	// Properties and quantities
	"IFCPROPERTYDEFINITION":      {"IFCROOT", nil},
	"IFCPROPERTYSETDEFINITION":   {"IFCPROPERTYDEFINITION", nil},
	"IFCPROPERTYSET":             {"IFCPROPERTYSETDEFINITION", []string{"HasProperties"}},
	"IFCQUANTITYSET":             {"IFCPROPERTYSETDEFINITION", nil},
	"IFCELEMENTQUANTITY":         {"IFCQUANTITYSET", []string{"MethodOfMeasurement", "Quantities"}},
	"IFCPROPERTY":                {"", []string{"Name", "Description"}},
	"IFCSIMPLEPROPERTY":          {"IFCPROPERTY", nil},
	"IFCPROPERTYSINGLEVALUE":     {"IFCSIMPLEPROPERTY", []string{"NominalValue", "Unit"}},
	"IFCPROPERTYENUMERATEDVALUE": {"IFCSIMPLEPROPERTY", []string{"EnumerationValues", "EnumerationReference"}},
	"IFCPROPERTYLISTVALUE":       {"IFCSIMPLEPROPERTY", []string{"ListValues", "Unit"}},
	"IFCPROPERTYBOUNDEDVALUE":    {"IFCSIMPLEPROPERTY", []string{"UpperBoundValue", "LowerBoundValue", "Unit", "SetPointValue"}},
	"IFCPHYSICALQUANTITY":        {"", []string{"Name", "Description"}},
	"IFCPHYSICALSIMPLEQUANTITY":  {"IFCPHYSICALQUANTITY", []string{"Unit"}},
	"IFCQUANTITYLENGTH":          {"IFCPHYSICALSIMPLEQUANTITY", []string{"LengthValue", "Formula"}},
	"IFCQUANTITYAREA":            {"IFCPHYSICALSIMPLEQUANTITY", []string{"AreaValue", "Formula"}},
	"IFCQUANTITYVOLUME":          {"IFCPHYSICALSIMPLEQUANTITY", []string{"VolumeValue", "Formula"}},
	"IFCQUANTITYCOUNT":           {"IFCPHYSICALSIMPLEQUANTITY", []string{"CountValue", "Formula"}},
	"IFCQUANTITYWEIGHT":          {"IFCPHYSICALSIMPLEQUANTITY", []string{"WeightValue", "Formula"}},
	// Relationships
	"IFCRELATIONSHIP":                   {"IFCROOT", nil},
	"IFCRELDEFINES":                     {"IFCRELATIONSHIP", nil},
	"IFCRELDEFINESBYPROPERTIES":         {"IFCRELDEFINES", []string{"RelatedObjects", "RelatingPropertyDefinition"}},
	"IFCRELDEFINESBYTYPE":               {"IFCRELDEFINES", []string{"RelatedObjects", "RelatingType"}},
	"IFCRELCONNECTS":                    {"IFCRELATIONSHIP", nil},
	"IFCRELCONTAINEDINSPATIALSTRUCTURE": {"IFCRELCONNECTS", []string{"RelatedElements", "RelatingStructure"}},
	"IFCRELFILLSELEMENT":                {"IFCRELCONNECTS", []string{"RelatingOpeningElement", "RelatedBuildingElement"}},
	"IFCRELVOIDSELEMENT":                {"IFCRELCONNECTS", []string{"RelatingBuildingElement", "RelatedOpeningElement"}},
	"IFCRELDECOMPOSES":                  {"IFCRELATIONSHIP", nil},
	"IFCRELAGGREGATES":                  {"IFCRELDECOMPOSES", []string{"RelatingObject", "RelatedObjects"}},
	"IFCRELASSOCIATES":                  {"IFCRELATIONSHIP", []string{"RelatedObjects"}},
	"IFCRELASSOCIATESMATERIAL":          {"IFCRELASSOCIATES", []string{"RelatingMaterial"}},
	// Resources
	"IFCOWNERHISTORY":           {"", []string{"OwningUser", "OwningApplication", "State", "ChangeAction", "LastModifiedDate", "LastModifyingUser", "LastModifyingApplication", "CreationDate"}},
	"IFCPERSON":                 {"", []string{"Identification", "FamilyName", "GivenName", "MiddleNames", "PrefixTitles", "SuffixTitles", "Roles", "Addresses"}},
	"IFCORGANIZATION":           {"", []string{"Identification", "Name", "Description", "Roles", "Addresses"}},
	"IFCPERSONANDORGANIZATION":  {"", []string{"ThePerson", "TheOrganization", "Roles"}},
	"IFCAPPLICATION":            {"", []string{"ApplicationDeveloper", "Version", "ApplicationFullName", "ApplicationIdentifier"}},
	"IFCMATERIAL":               {"", []string{"Name", "Description", "Category"}},
	"IFCMATERIALLAYER":          {"", []string{"Material", "LayerThickness", "IsVentilated", "Name", "Description", "Category", "Priority"}},
	"IFCMATERIALLAYERSET":       {"", []string{"MaterialLayers", "LayerSetName", "Description"}},
	"IFCSIUNIT":                 {"", []string{"Dimensions", "UnitType", "Prefix", "Name"}},
	"IFCUNITASSIGNMENT":         {"", []string{"Units"}},
	"IFCCARTESIANPOINT":         {"", []string{"Coordinates"}},
	"IFCDIRECTION":              {"", []string{"DirectionRatios"}},
	"IFCAXIS2PLACEMENT3D":       {"", []string{"Location", "Axis", "RefDirection"}},
	"IFCLOCALPLACEMENT":         {"", []string{"PlacementRelTo", "RelativePlacement"}},
	"IFCPRODUCTDEFINITIONSHAPE": {"", []string{"Name", "Description", "Representations"}},
	"IFCSHAPEREPRESENTATION":    {"", []string{"ContextOfItems", "RepresentationIdentifier", "RepresentationType", "Items"}},
}

// ifc2x3Overrides lists the own attributes that differ in IFC2X3
var ifc2x3Overrides = map[string]entityDef{
	"IFCSPACE":                {"IFCSPATIALSTRUCTUREELEMENT", []string{"InteriorOrExteriorSpace", "ElevationWithFlooring"}},
	"IFCBUILDINGELEMENTPROXY": {"IFCBUILDINGELEMENT", []string{"CompositionType"}},
	"IFCSPATIALELEMENT":       {"IFCPRODUCT", []string{"LongName"}},
	"IFCPROPERTYBOUNDEDVALUE": {"IFCSIMPLEPROPERTY", []string{"UpperBoundValue", "LowerBoundValue", "Unit"}},
}

var (
	ifc4Names   = resolveAll(entities, nil)
	ifc2x3Names = resolveAll(entities, ifc2x3Overrides)
)

func resolveAll(base, overrides map[string]entityDef) map[string][]string {
	lookup := func(name string) (entityDef, bool) {
		if def, ok := overrides[name]; ok {
			return def, true
		}
		def, ok := base[name]
		return def, ok
	}
	result := make(map[string][]string, len(base))
	var resolve func(name string) []string
	resolve = func(name string) []string {
		if names, ok := result[name]; ok {
			return names
		}
		def, ok := lookup(name)
		if !ok {
			return nil
		}
		names := append([]string{}, resolve(def.parent)...)
		names = append(names, def.attrs...)
		result[name] = names
		return names
	}
	for name := range base {
		resolve(name)
	}
	return result
}

// AttributeNames returns the explicit attribute names of an entity type in
// declaration order, or nil when the type is not known.
func AttributeNames(schema, entity string) []string {
	entity = strings.ToUpper(entity)
	if strings.HasPrefix(strings.ToUpper(schema), "IFC2X") {
		return ifc2x3Names[entity]
	}
	return ifc4Names[entity]
}

// attributeName names the i-th parameter, positionally when the schema has no name for it
func attributeName(names []string, i int) string {
	if i < len(names) {
		return names[i]
	}
	return "Attr" + strconv.Itoa(i)
}
